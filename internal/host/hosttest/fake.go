// Package hosttest provides an in-memory host.Bridge for tests.
package hosttest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/oakley-srs/oakley/internal/host"
)

// InvokeFunc answers one command. The returned value is JSON round-tripped
// into the caller's destination, like the real client does.
type InvokeFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Fake is a programmable host.Bridge.
type Fake struct {
	mu          sync.Mutex
	available   bool
	closed      bool
	handlers    map[string]InvokeFunc
	calls       map[string]int
	args        map[string][]json.RawMessage
	listeners   map[string]map[uint64]host.Handler
	listenErr   map[string]error
	listenCalls int
	nextID      uint64
}

var _ host.Bridge = (*Fake)(nil)

// New returns an available Fake with no command handlers.
func New() *Fake {
	return &Fake{
		available: true,
		handlers:  make(map[string]InvokeFunc),
		calls:     make(map[string]int),
		args:      make(map[string][]json.RawMessage),
		listeners: make(map[string]map[uint64]host.Handler),
		listenErr: make(map[string]error),
	}
}

// SetAvailable toggles whether the Fake behaves like a present host.
func (f *Fake) SetAvailable(v bool) {
	f.mu.Lock()
	f.available = v
	f.mu.Unlock()
}

// Handle installs fn for command, replacing any previous handler.
func (f *Fake) Handle(command string, fn InvokeFunc) {
	f.mu.Lock()
	f.handlers[command] = fn
	f.mu.Unlock()
}

// Respond installs a handler that always returns result.
func (f *Fake) Respond(command string, result any) {
	f.Handle(command, func(context.Context, json.RawMessage) (any, error) { return result, nil })
}

// Reject installs a handler that fails like a host-side rejection.
func (f *Fake) Reject(command, message string) {
	f.Handle(command, func(context.Context, json.RawMessage) (any, error) {
		return nil, &host.CommandError{Command: command, Status: http.StatusInternalServerError, Message: message}
	})
}

// FailListen makes Listen for name return err.
func (f *Fake) FailListen(name string, err error) {
	f.mu.Lock()
	f.listenErr[name] = err
	f.mu.Unlock()
}

func (f *Fake) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available && !f.closed
}

func (f *Fake) Listen(ctx context.Context, name string, h host.Handler) (host.Unlisten, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listenCalls++
	if !f.available || f.closed {
		return nil, host.ErrUnavailable
	}
	if err := f.listenErr[name]; err != nil {
		return nil, err
	}
	f.nextID++
	id := f.nextID
	set, ok := f.listeners[name]
	if !ok {
		set = make(map[uint64]host.Handler)
		f.listeners[name] = set
	}
	set[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.listeners[name], id)
			if len(f.listeners[name]) == 0 {
				delete(f.listeners, name)
			}
		})
	}, nil
}

func (f *Fake) Invoke(ctx context.Context, command string, args, dest any) error {
	raw := json.RawMessage("{}")
	if args != nil {
		encoded, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encode %s args: %w", command, err)
		}
		raw = encoded
	}

	f.mu.Lock()
	if !f.available || f.closed {
		f.mu.Unlock()
		return host.ErrUnavailable
	}
	f.calls[command]++
	f.args[command] = append(f.args[command], raw)
	fn := f.handlers[command]
	f.mu.Unlock()

	if fn == nil {
		return &host.CommandError{Command: command, Status: http.StatusNotFound, Message: "unknown command"}
	}
	result, err := fn(ctx, raw)
	if err != nil {
		return err
	}
	if dest == nil || result == nil {
		return nil
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s result: %w", command, err)
	}
	if err := json.Unmarshal(encoded, dest); err != nil {
		return fmt.Errorf("decode %s response: %w", command, err)
	}
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.listeners = make(map[string]map[uint64]host.Handler)
	f.mu.Unlock()
	return nil
}

// Emit delivers evt synchronously to the listeners registered for its name,
// in registration order. It reports how many handlers ran.
func (f *Fake) Emit(evt host.Event) int {
	f.mu.Lock()
	set := f.listeners[evt.Name]
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]host.Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, set[id])
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
	return len(handlers)
}

// Calls reports how many times command was invoked.
func (f *Fake) Calls(command string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[command]
}

// Args returns the encoded argument objects command was invoked with.
func (f *Fake) Args(command string) []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]json.RawMessage, len(f.args[command]))
	copy(out, f.args[command])
	return out
}

// ListenerCount reports the live listeners for name.
func (f *Fake) ListenerCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners[name])
}

// TotalListeners reports live listeners across all names.
func (f *Fake) TotalListeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, set := range f.listeners {
		n += len(set)
	}
	return n
}

// ListenCalls reports how many times Listen was called.
func (f *Fake) ListenCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listenCalls
}
