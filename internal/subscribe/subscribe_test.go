package subscribe

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/oakley-srs/oakley/internal/host"
	"github.com/oakley-srs/oakley/internal/host/hosttest"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) sink(evt host.Event) {
	r.mu.Lock()
	r.events = append(r.events, evt.Name)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestActivate_SubscribesEachEventOnce(t *testing.T) {
	fake := hosttest.New()
	m := NewManager(fake, zerolog.Nop())
	rec := &recorder{}

	h, err := m.Activate(context.Background(), rec.sink)
	if err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}
	again, err := m.Activate(context.Background(), rec.sink)
	if err != nil {
		t.Fatalf("second Activate returned error: %v", err)
	}
	if again != h {
		t.Fatalf("second Activate returned a different handle")
	}
	for _, name := range Events {
		if n := fake.ListenerCount(name); n != 1 {
			t.Fatalf("ListenerCount(%s) = %d, want 1", name, n)
		}
	}

	fake.Emit(host.Event{Name: host.EventCardGenerating})
	if rec.count() != 1 {
		t.Fatalf("events delivered = %d, want 1", rec.count())
	}
}

func TestActivate_ConcurrentCallsShareSetup(t *testing.T) {
	fake := hosttest.New()
	m := NewManager(fake, zerolog.Nop())
	rec := &recorder{}

	handles := make([]*Handle, 16)
	var wg sync.WaitGroup
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := m.Activate(context.Background(), rec.sink)
			if err != nil {
				t.Errorf("Activate returned error: %v", err)
				return
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	for i, h := range handles {
		if h != handles[0] {
			t.Fatalf("handle %d differs from handle 0", i)
		}
	}
	if n := fake.ListenCalls(); n != len(Events) {
		t.Fatalf("Listen calls = %d, want %d", n, len(Events))
	}
	fake.Emit(host.Event{Name: host.EventHotkey})
	if rec.count() != 1 {
		t.Fatalf("events delivered = %d, want exactly 1", rec.count())
	}
}

func TestClose_IsIdempotentAndAllowsRemount(t *testing.T) {
	fake := hosttest.New()
	m := NewManager(fake, zerolog.Nop())
	rec := &recorder{}

	h, err := m.Activate(context.Background(), rec.sink)
	if err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}
	h.Close()
	h.Close()
	if n := fake.TotalListeners(); n != 0 {
		t.Fatalf("listeners after Close = %d, want 0", n)
	}
	if h.Open() {
		t.Fatalf("handle still open after Close")
	}
	if m.Active() != nil {
		t.Fatalf("manager still reports an active handle")
	}

	remount, err := m.Activate(context.Background(), rec.sink)
	if err != nil {
		t.Fatalf("remount Activate returned error: %v", err)
	}
	if remount == h {
		t.Fatalf("remount reused the closed handle")
	}
	fake.Emit(host.Event{Name: host.EventCardGenerating})
	if rec.count() != 1 {
		t.Fatalf("events delivered after remount = %d, want 1", rec.count())
	}
	remount.Close()
}

func TestDeliveryAfterCloseIsDropped(t *testing.T) {
	fake := hosttest.New()
	m := NewManager(fake, zerolog.Nop())
	rec := &recorder{}
	h, err := m.Activate(context.Background(), rec.sink)
	if err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}

	h.Close()
	h.deliver(host.Event{Name: host.EventHotkey})
	if rec.count() != 0 {
		t.Fatalf("event delivered after Close")
	}
}

func TestActivate_PartialFailureRollsBack(t *testing.T) {
	fake := hosttest.New()
	boom := errors.New("listen refused")
	fake.FailListen(host.EventCardCreated, boom)
	m := NewManager(fake, zerolog.Nop())

	_, err := m.Activate(context.Background(), func(host.Event) {})
	if !errors.Is(err, boom) {
		t.Fatalf("Activate error = %v, want %v", err, boom)
	}
	if n := fake.TotalListeners(); n != 0 {
		t.Fatalf("listeners after failed Activate = %d, want 0", n)
	}
	if m.Active() != nil {
		t.Fatalf("failed activation left an active handle")
	}
}

func TestActivate_UnavailableBridgeIsNoop(t *testing.T) {
	fake := hosttest.New()
	fake.SetAvailable(false)
	m := NewManager(fake, zerolog.Nop())

	h, err := m.Activate(context.Background(), func(host.Event) {})
	if err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}
	if !h.Inert() || h.Open() {
		t.Fatalf("handle = inert %v open %v, want inert and closed", h.Inert(), h.Open())
	}
	h.Close()
	if n := fake.ListenCalls(); n != 0 {
		t.Fatalf("Listen calls = %d, want 0", n)
	}

	inert, err := NewManager(host.Inert{}, zerolog.Nop()).Activate(context.Background(), func(host.Event) {})
	if err != nil || !inert.Inert() {
		t.Fatalf("inert bridge Activate = (%v, %v), want no-op handle", inert, err)
	}
}
