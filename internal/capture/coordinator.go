// Package capture runs the single capture session: it owns which tab is
// being captured, with what settings, and pushes each caption through
// translation to the overlay.
package capture

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/live-subtitle/backend/internal/protocol"
)

// Coordinator is the single point every request passes through.
type Coordinator struct {
	pages      Pages
	translator Translator
	store      SettingsStore

	mu        sync.Mutex
	state     State
	owner     *protocol.TabID
	settings  protocol.Settings
	epoch     uint64
	ctx       context.Context
	cancel    context.CancelFunc
	platforms map[string]*platform
}

// NewCoordinator returns an idle coordinator using initial as the starting
// settings. store may be nil.
func NewCoordinator(pages Pages, translator Translator, store SettingsStore, initial protocol.Settings) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		pages:      pages,
		translator: translator,
		store:      store,
		settings:   initial,
		ctx:        ctx,
		cancel:     cancel,
		platforms:  make(map[string]*platform),
	}
}

// Status returns a snapshot of the session.
func (c *Coordinator) Status() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Session {
	s := Session{
		State:    c.state,
		Active:   c.state == Active,
		Settings: c.settings,
	}
	if c.owner != nil {
		id := *c.owner
		s.OwnerTabID = &id
	}
	return s
}

// StartCapture begins a session on tabID, the sender's tab, or the most
// recently active tab, in that order.
func (c *Coordinator) StartCapture(ctx context.Context, tabID *protocol.TabID, patch protocol.SettingsPatch) error {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrAlreadyCapturing
	}
	c.state = Starting
	startEpoch := c.epoch
	c.mu.Unlock()

	var target protocol.TabID
	switch {
	case tabID != nil:
		target = *tabID
	default:
		id, ok := c.pages.ActiveTab()
		if !ok {
			c.mu.Lock()
			if c.state == Starting && c.epoch == startEpoch {
				c.state = Idle
			}
			c.mu.Unlock()
			return ErrNoActiveTab
		}
		target = id
	}

	c.mu.Lock()
	if c.state != Starting || c.epoch != startEpoch {
		c.mu.Unlock()
		return ErrStartAborted
	}
	c.settings = c.settings.Merge(patch)
	c.state = Active
	c.owner = &target
	c.epoch++
	c.resetLocked()
	settings := c.settings
	if err := c.pages.Send(target, protocol.CaptureStarted(settings)); err != nil {
		log.Printf("[capture] WARNING: notify tab %d: %v", target, err)
	}
	c.mu.Unlock()

	log.Printf("[capture] started on tab %d (target=%s)", target, settings.TargetLanguage)
	c.persist(ctx, settings)
	return nil
}

// StopCapture ends the session. Stopping while idle is a no-op that still
// succeeds.
func (c *Coordinator) StopCapture(ctx context.Context) {
	c.mu.Lock()
	wasActive := c.state != Idle
	c.stopLocked()
	c.pages.Broadcast(protocol.CaptureStopped())
	c.mu.Unlock()

	if wasActive {
		log.Printf("[capture] stopped")
	}
}

// stopLocked forces the session idle and discards in-flight translations.
func (c *Coordinator) stopLocked() {
	c.state = Idle
	c.owner = nil
	c.epoch++
	c.resetLocked()
}

// resetLocked cancels in-flight work and forgets per-platform state.
func (c *Coordinator) resetLocked() {
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.platforms = make(map[string]*platform)
}

// UpdateSettings merges patch into the settings whether or not a session is
// running, and tells the owner tab when one is.
func (c *Coordinator) UpdateSettings(ctx context.Context, patch protocol.SettingsPatch) protocol.Settings {
	c.mu.Lock()
	c.settings = c.settings.Merge(patch)
	settings := c.settings
	if c.state == Active && c.owner != nil {
		if err := c.pages.Send(*c.owner, protocol.SettingsUpdated(settings)); err != nil {
			log.Printf("[capture] WARNING: notify tab %d: %v", *c.owner, err)
		}
	}
	c.mu.Unlock()

	c.persist(ctx, settings)
	return settings
}

// TabClosed stops the session when tabID owned it.
func (c *Coordinator) TabClosed(tabID protocol.TabID) {
	c.mu.Lock()
	owned := c.owner != nil && *c.owner == tabID
	if owned {
		c.stopLocked()
		c.pages.Broadcast(protocol.CaptureStopped())
	}
	c.mu.Unlock()

	if owned {
		log.Printf("[capture] owner tab %d closed, capture stopped", tabID)
	}
}

// Suspend forces the session idle before shutdown.
func (c *Coordinator) Suspend(ctx context.Context) {
	c.mu.Lock()
	wasActive := c.state != Idle
	c.stopLocked()
	c.cancel()
	c.mu.Unlock()

	if wasActive {
		log.Printf("[capture] suspended, capture stopped")
	}
}

// startFailure maps a StartCapture error to the text page agents display.
func startFailure(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyCapturing):
		return "Already capturing captions"
	case errors.Is(err, ErrNoActiveTab):
		return "No active tab found"
	}
	return err.Error()
}

func (c *Coordinator) persist(ctx context.Context, s protocol.Settings) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveCaptureSettings(ctx, s); err != nil {
		log.Printf("[capture] WARNING: save settings: %v", err)
	}
}

// Translate handles an ad-hoc translation. An empty target uses the session
// language. The reply always carries usable text.
func (c *Coordinator) Translate(ctx context.Context, text, targetLang string) protocol.TranslateResult {
	if text == "" {
		return protocol.TranslateResult{Success: false, Error: "No text provided"}
	}

	c.mu.Lock()
	settings := c.settings
	c.mu.Unlock()
	if targetLang == "" {
		targetLang = settings.TargetLanguage
	}
	if targetLang == protocol.LanguageNone {
		return protocol.TranslateResult{Success: true, TranslatedText: text}
	}

	out, err := c.translator.Translate(ctx, text, targetLang, settings.CensorProfanity)
	if err != nil {
		log.Printf("[capture] translate text: %v", err)
		return protocol.TranslateResult{Success: false, TranslatedText: text, Error: err.Error()}
	}
	return protocol.TranslateResult{Success: true, TranslatedText: out}
}

// Handle dispatches one request and returns its reply. It never fails:
// errors are reported inside the reply.
func (c *Coordinator) Handle(ctx context.Context, sender protocol.Sender, req protocol.Request) protocol.Reply {
	switch r := req.(type) {
	case protocol.StartCapture:
		tabID := r.TabID
		if tabID == nil {
			tabID = sender.TabID
		}
		if err := c.StartCapture(ctx, tabID, r.Settings); err != nil {
			return protocol.Result{Success: false, Error: err.Error()}
		}
		return protocol.Result{Success: true}

	case protocol.StopCapture:
		c.StopCapture(ctx)
		return protocol.Result{Success: true}

	case protocol.GetStatus:
		return protocol.StatusResult{IsCapturing: c.Status().Active}

	case protocol.UpdateSettings:
		c.UpdateSettings(ctx, r.Settings)
		return protocol.Result{Success: true}

	case protocol.TranslateText:
		return c.Translate(ctx, r.Text, r.TargetLanguage)

	case protocol.UpdateCaption:
		return c.HandleCaption(ctx, r)

	default:
		name := "<nil>"
		if req != nil {
			name = string(req.MessageType())
		}
		log.Printf("[capture] WARNING: unknown message type %q", name)
		return protocol.Result{Success: false, Error: "unknown message type"}
	}
}
