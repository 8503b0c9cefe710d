// Package subscribe manages the lifetime of host event listeners.
//
// A Manager registers the fixed event set once and hands out a single
// Handle. Closing the Handle removes every listener exactly once, after
// which the Manager can be activated again.
package subscribe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/oakley-srs/oakley/internal/host"
)

// Events is the event set the overlay listens to.
var Events = []string{host.EventHotkey, host.EventCardGenerating, host.EventCardCreated}

// Sink receives events while a Handle is open.
type Sink func(host.Event)

// Manager owns the subscription to host events.
type Manager struct {
	bridge host.Bridge
	names  []string
	log    zerolog.Logger

	mu     sync.Mutex
	active *Handle
	setup  singleflight.Group
}

// NewManager subscribes to names, or to Events when none are given.
func NewManager(bridge host.Bridge, log zerolog.Logger, names ...string) *Manager {
	if bridge == nil {
		bridge = host.Inert{}
	}
	if len(names) == 0 {
		names = Events
	}
	dup := make([]string, len(names))
	copy(dup, names)
	return &Manager{
		bridge: bridge,
		names:  dup,
		log:    log.With().Str("component", "subscribe").Logger(),
	}
}

// Activate registers sink for every event. While a Handle is open, further
// calls return that same Handle and sink is not registered again.
// Concurrent calls share one setup. Without a bridge the returned Handle is
// a no-op.
func (m *Manager) Activate(ctx context.Context, sink Sink) (*Handle, error) {
	if sink == nil {
		return nil, fmt.Errorf("activate: nil sink")
	}
	if !m.bridge.Available() {
		m.log.Info().Msg("host bridge unavailable, running without subscriptions")
		return inertHandle(), nil
	}
	if h := m.current(); h != nil {
		return h, nil
	}

	v, err, _ := m.setup.Do("activate", func() (interface{}, error) {
		if h := m.current(); h != nil {
			return h, nil
		}
		return m.subscribe(ctx, sink)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// Active returns the open Handle, if any.
func (m *Manager) Active() *Handle {
	return m.current()
}

func (m *Manager) current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Manager) subscribe(ctx context.Context, sink Sink) (*Handle, error) {
	h := &Handle{manager: m, sink: sink}
	for _, name := range m.names {
		unlisten, err := m.bridge.Listen(ctx, name, h.deliver)
		if err != nil {
			h.release()
			if errors.Is(err, host.ErrUnavailable) {
				m.log.Info().Str("event", name).Msg("host bridge went away during subscribe")
				return inertHandle(), nil
			}
			m.log.Error().Err(err).Str("event", name).Msg("subscribe failed, rolled back")
			return nil, fmt.Errorf("subscribe %s: %w", name, err)
		}
		h.unlisten = append(h.unlisten, unlisten)
	}

	m.mu.Lock()
	m.active = h
	m.mu.Unlock()
	m.log.Debug().Strs("events", m.names).Msg("subscribed")
	return h, nil
}

// Handle is one activation. Close is idempotent.
type Handle struct {
	manager  *Manager
	sink     Sink
	unlisten []host.Unlisten
	once     sync.Once
	closed   atomic.Bool
}

func inertHandle() *Handle {
	h := &Handle{}
	h.closed.Store(true)
	return h
}

// Inert reports whether the handle never subscribed.
func (h *Handle) Inert() bool {
	return h.manager == nil
}

// Open reports whether events are being delivered.
func (h *Handle) Open() bool {
	return !h.closed.Load()
}

// Close removes every listener. Events arriving afterwards are dropped.
func (h *Handle) Close() {
	if h == nil || h.manager == nil {
		return
	}
	h.once.Do(func() {
		h.release()
		m := h.manager
		m.mu.Lock()
		if m.active == h {
			m.active = nil
		}
		m.mu.Unlock()
		m.log.Debug().Msg("unsubscribed")
	})
}

func (h *Handle) release() {
	h.closed.Store(true)
	for _, unlisten := range h.unlisten {
		unlisten()
	}
	h.unlisten = nil
}

func (h *Handle) deliver(evt host.Event) {
	if h.closed.Load() {
		return
	}
	h.sink(evt)
}
