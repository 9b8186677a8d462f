// Package netwatch maintains a cached view of network reachability and
// notifies listeners on transition edges.
//
// The monitor is a best-effort oracle, not a consensus mechanism: IsOnline
// reflects the most recent probe, with no staleness bound beyond the polling
// interval. It is an injectable object with an explicit Start/Stop
// lifecycle, so tests substitute a fake prober instead of monkeypatching
// global state.
package netwatch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Prober answers "is the network reachable right now".
type Prober interface {
	Probe(ctx context.Context) (bool, error)
}

// DefaultInterval is the background polling cadence.
const DefaultInterval = 15 * time.Second

// Monitor caches the last known connectivity state and fans transition
// edges out to listeners.
type Monitor struct {
	prober   Prober
	interval time.Duration

	mu        sync.Mutex
	online    bool
	listeners map[int]func(online bool)
	nextID    int
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the background polling cadence.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithInitialState seeds the cached state before the first probe. The
// default is online, matching the optimistic stance of the mobile client:
// assume reachable until a probe says otherwise.
func WithInitialState(online bool) Option {
	return func(m *Monitor) { m.online = online }
}

// New creates a Monitor over the given prober. The monitor does not probe
// until Start or Refresh is called.
func New(prober Prober, opts ...Option) *Monitor {
	m := &Monitor{
		prober:    prober,
		interval:  DefaultInterval,
		online:    true,
		listeners: make(map[int]func(bool)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsOnline returns the last known state. It performs no I/O and is safe to
// call from any goroutine.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Refresh forces a probe, updates the cached state, and returns the fresh
// value. A probe error counts as offline: an unreachable probe target is
// indistinguishable from an unreachable network.
func (m *Monitor) Refresh(ctx context.Context) (bool, error) {
	online, err := m.prober.Probe(ctx)
	if err != nil {
		online = false
	}
	m.setState(online)
	return online, err
}

// AddListener registers a callback invoked once per transition edge
// (offline→online with true, online→offline with false). Listeners are
// independent; the returned unsubscribe removes only this one.
func (m *Monitor) AddListener(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Start launches background polling. Calling Start on a started monitor is
// a no-op. Stop or ctx cancellation ends the loop.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	go m.poll(ctx, done)
}

// Stop ends background polling and waits for the loop to exit. Safe to call
// on a monitor that was never started.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Monitor) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	// Probe immediately so the cache is fresh before the first tick.
	if _, err := m.Refresh(ctx); err != nil {
		slog.Debug("connectivity probe failed", "error", err)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Refresh(ctx); err != nil {
				slog.Debug("connectivity probe failed", "error", err)
			}
		}
	}
}

// setState records the new state and notifies listeners when it changed.
// Callbacks run outside the lock so a listener may call back into the
// monitor (including unsubscribing itself).
func (m *Monitor) setState(online bool) {
	m.mu.Lock()
	was := m.online
	m.online = online
	var toNotify []func(bool)
	if was != online {
		toNotify = make([]func(bool), 0, len(m.listeners))
		for _, fn := range m.listeners {
			toNotify = append(toNotify, fn)
		}
	}
	m.mu.Unlock()

	if was != online {
		slog.Info("connectivity changed", "online", online)
	}
	for _, fn := range toNotify {
		fn(online)
	}
}
