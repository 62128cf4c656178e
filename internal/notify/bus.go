package notify

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

// Store is the persisted side of the bus
type Store interface {
	List(ctx context.Context) ([]Record, error)
	MarkAllRead(ctx context.Context) error
}

// Bus fans notifications out to subscribers and caches the persistent ones.
type Bus struct {
	store Store

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(Notification)
	cache  []Notification
}

// NewBus creates a bus. store may be nil, in which case only locally
// emitted notifications are cached.
func NewBus(store Store) *Bus {
	return &Bus{
		store: store,
		subs:  make(map[uint64]func(Notification)),
	}
}

// Subscribe registers fn for every emitted notification. The returned func
// removes it and is safe to call more than once.
func (b *Bus) Subscribe(fn func(Notification)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Emit delivers n to every current subscriber on the caller's goroutine. A
// panicking subscriber is logged and the rest still receive n.
func (b *Bus) Emit(n Notification) {
	b.mu.Lock()
	if n.Persistent {
		b.upsertLocked(n)
	}
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	subs := make([]func(Notification), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range subs {
		deliver(fn, n)
	}
}

func deliver(fn func(Notification), n Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[notify] subscriber panicked on %s: %v", n.ID, r)
		}
	}()
	fn(n)
}

func (b *Bus) upsertLocked(n Notification) {
	for i := range b.cache {
		if b.cache[i].ID == n.ID {
			b.cache[i] = n
			return
		}
	}
	b.cache = append(b.cache, n)
}

// FetchPersisted replaces the cache with the store's notifications.
func (b *Bus) FetchPersisted(ctx context.Context) ([]Notification, error) {
	if b.store == nil {
		return b.Notifications(), nil
	}
	records, err := b.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch notifications: %w", err)
	}

	fetched := make([]Notification, 0, len(records))
	for _, r := range records {
		fetched = append(fetched, FromRecord(r))
	}

	b.mu.Lock()
	b.cache = fetched
	b.mu.Unlock()
	return b.Notifications(), nil
}

// MarkAllRead marks everything read in the store, then in the cache. The
// cache is left alone when the store call fails.
func (b *Bus) MarkAllRead(ctx context.Context) error {
	if b.store != nil {
		if err := b.store.MarkAllRead(ctx); err != nil {
			return fmt.Errorf("mark notifications read: %w", err)
		}
	}
	b.mu.Lock()
	for i := range b.cache {
		b.cache[i].IsRead = true
	}
	b.mu.Unlock()
	return nil
}

// UnreadCount returns the number of unread cached notifications.
func (b *Bus) UnreadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.cache {
		if !c.IsRead {
			n++
		}
	}
	return n
}

// Notifications returns a copy of the cache, newest first.
func (b *Bus) Notifications() []Notification {
	b.mu.Lock()
	out := make([]Notification, len(b.cache))
	copy(out, b.cache)
	b.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
