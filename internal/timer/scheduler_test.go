package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_FiresInOrder(t *testing.T) {
	m := NewManual()
	var order []string
	m.After(2*time.Second, func() { order = append(order, "b") })
	m.After(1*time.Second, func() { order = append(order, "a") })
	m.After(2*time.Second, func() { order = append(order, "c") })

	m.Advance(1500 * time.Millisecond)
	assert.Equal(t, []string{"a"}, order)

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 2500*time.Millisecond, m.Now())
}

func TestManual_CancelPreventsFire(t *testing.T) {
	m := NewManual()
	fired := false
	tok := m.After(time.Second, func() { fired = true })
	tok.Cancel()
	tok.Cancel()

	m.Advance(time.Minute)
	assert.False(t, fired)
	assert.Empty(t, m.Pending())
}

func TestManual_RescheduleFromCallback(t *testing.T) {
	m := NewManual()
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			m.After(time.Second, tick)
		}
	}
	m.After(time.Second, tick)

	m.Advance(10 * time.Second)
	assert.Equal(t, 3, count)
}

func TestManual_RunNext(t *testing.T) {
	m := NewManual()
	assert.False(t, m.RunNext())

	m.After(5*time.Second, func() {})
	require.Equal(t, []time.Duration{5 * time.Second}, m.Pending())
	assert.True(t, m.RunNext())
	assert.Equal(t, 5*time.Second, m.Now())
}

func TestReal_CancelStopsTimer(t *testing.T) {
	var fired atomic.Bool
	tok := Real{}.After(20*time.Millisecond, func() { fired.Store(true) })
	tok.Cancel()
	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())

	done := make(chan struct{})
	Real{}.After(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}
