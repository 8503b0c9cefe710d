package host

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type eventServer struct {
	*httptest.Server
	conns chan *websocket.Conn
}

func newEventServer(t *testing.T) *eventServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	es := &eventServer{conns: make(chan *websocket.Conn, 8)}
	es.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		es.conns <- conn
	}))
	t.Cleanup(es.Close)
	return es
}

func (es *eventServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-es.conns:
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatalf("no websocket connection")
		return nil
	}
}

func TestListen_DispatchesNamedEventsInOrder(t *testing.T) {
	es := newEventServer(t)
	c := newTestClient(t, es.URL)

	got := make(chan Event, 8)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	unlistenCreated, err := c.Listen(ctx, EventCardCreated, func(evt Event) { got <- evt })
	if err != nil {
		t.Fatalf("Listen returned error: %v", err)
	}
	t.Cleanup(unlistenCreated)
	unlistenGenerating, err := c.Listen(ctx, EventCardGenerating, func(evt Event) { got <- evt })
	if err != nil {
		t.Fatalf("Listen returned error: %v", err)
	}
	t.Cleanup(unlistenGenerating)

	conn := es.accept(t)
	frames := []Event{
		{Name: EventCardGenerating},
		{Name: "something_else"},
		NewCardEvent(Card{ID: 1, Front: "F", Back: "B", Tags: []string{"x"}}),
	}
	for _, f := range frames {
		if err := conn.WriteJSON(f); err != nil {
			t.Fatalf("WriteJSON: %v", err)
		}
	}

	want := []string{EventCardGenerating, EventCardCreated}
	for i, name := range want {
		select {
		case evt := <-got:
			if evt.Name != name {
				t.Fatalf("event %d = %q, want %q", i, evt.Name, name)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d (%s)", i, name)
		}
	}
}

func TestListen_MalformedFrameKeepsConnection(t *testing.T) {
	es := newEventServer(t)
	c := newTestClient(t, es.URL)

	got := make(chan Event, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	unlisten, err := c.Listen(ctx, EventCardCreated, func(evt Event) { got <- evt })
	if err != nil {
		t.Fatalf("Listen returned error: %v", err)
	}
	t.Cleanup(unlisten)

	conn := es.accept(t)
	for _, raw := range []string{`{"event": 5}`, `not json`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}
	if err := conn.WriteJSON(NewCardEvent(Card{ID: 3, Front: "F", Back: "B", Tags: []string{}})); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	select {
	case evt := <-got:
		card, err := evt.DecodeCard()
		if err != nil || card.ID != 3 {
			t.Fatalf("event = %+v (%v), want card 3", evt, err)
		}
	case <-time.After(time.Second):
		t.Fatal("valid event after malformed frames was not delivered")
	}

	select {
	case <-es.conns:
		t.Fatal("client reconnected after a malformed frame")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestListen_SharesOneConnectionAndClosesWhenIdle(t *testing.T) {
	es := newEventServer(t)
	c := newTestClient(t, es.URL)
	ctx := context.Background()

	first, err := c.Listen(ctx, EventHotkey, func(Event) {})
	if err != nil {
		t.Fatalf("Listen returned error: %v", err)
	}
	second, err := c.Listen(ctx, EventCardCreated, func(Event) {})
	if err != nil {
		t.Fatalf("Listen returned error: %v", err)
	}
	conn := es.accept(t)

	select {
	case <-es.conns:
		t.Fatalf("second listener opened another connection")
	case <-time.After(100 * time.Millisecond):
	}

	first()
	first()
	if n := c.ListenerCount(EventHotkey); n != 0 {
		t.Fatalf("ListenerCount(hotkey) = %d, want 0", n)
	}
	second()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("server read succeeded, want closed connection after last unlisten")
	}
}

func TestListen_DialFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(t, server.URL)
	server.Close()

	_, err := c.Listen(context.Background(), EventCardCreated, func(Event) {})
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("Listen error = %v, want *TransportError", err)
	}
	if n := c.ListenerCount(EventCardCreated); n != 0 {
		t.Fatalf("ListenerCount = %d, want 0 after failed listen", n)
	}
}

func TestListen_AfterCloseIsUnavailable(t *testing.T) {
	es := newEventServer(t)
	c := newTestClient(t, es.URL)
	_ = c.Close()

	if _, err := c.Listen(context.Background(), EventCardCreated, func(Event) {}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Listen error = %v, want ErrUnavailable", err)
	}
}

func TestReconnectDelay(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, reconnectBase},
		{1, reconnectBase},
		{2, 2 * reconnectBase},
		{3, 4 * reconnectBase},
		{10, reconnectMax},
	}
	for _, tt := range tests {
		if got := reconnectDelay(tt.failures); got != tt.want {
			t.Errorf("reconnectDelay(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}
