package host

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(url, ClientOptions{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultBridgeURL {
		t.Fatalf("url = %q, want %q", u.String(), defaultBridgeURL)
	}

	u, err = parseBaseURL("localhost:9000/ignored?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "localhost:9000" {
		t.Fatalf("url = %q, want http://localhost:9000", u.String())
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("ftp://example.com"); err == nil {
		t.Fatalf("parseBaseURL(ftp) returned nil error, want unsupported scheme")
	}
}

func TestClient_InvokeEncodesArgsAndDecodesResult(t *testing.T) {
	t.Parallel()

	var gotPath, gotBody, gotAgent, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get("X-Request-ID")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Card{ID: 7, Front: "F", Back: "B", Tags: []string{"x"}})
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	var card Card
	if err := c.Invoke(ctx, CommandGenerateCard, GenerateArgs{Text: "hello"}, &card); err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if gotPath != "/invoke/generate_card" {
		t.Fatalf("path = %q, want /invoke/generate_card", gotPath)
	}
	if gotBody != `{"text":"hello"}` {
		t.Fatalf("body = %q, want text arg", gotBody)
	}
	if !strings.HasPrefix(gotAgent, "oakley/") {
		t.Fatalf("User-Agent = %q, want oakley/*", gotAgent)
	}
	if gotRequestID == "" {
		t.Fatalf("X-Request-ID header missing")
	}
	if card.ID != 7 || card.Front != "F" || len(card.Tags) != 1 {
		t.Fatalf("card = %#v, want id=7", card)
	}
}

func TestClient_InvokeNilArgsSendsEmptyObject(t *testing.T) {
	t.Parallel()

	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL)
	var cards []Card
	if err := c.Invoke(context.Background(), CommandListCards, nil, &cards); err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if gotBody != "{}" {
		t.Fatalf("body = %q, want {}", gotBody)
	}
}

func TestClient_InvokeRejectionAndDecodeErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/invoke/accept_card":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":" front is empty "}`))
		case "/invoke/list_cards":
			_, _ = w.Write([]byte("{not-json"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL)

	err := c.Invoke(context.Background(), CommandAcceptCard, AcceptArgs{Card: Card{ID: 1}}, nil)
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Invoke error = %v, want *CommandError", err)
	}
	if cmdErr.Status != http.StatusUnprocessableEntity || cmdErr.Message != "front is empty" {
		t.Fatalf("CommandError = %#v, want 422 with trimmed message", cmdErr)
	}

	var cards []Card
	err = c.Invoke(context.Background(), CommandListCards, nil, &cards)
	if err == nil || !strings.Contains(err.Error(), "decode list_cards response") {
		t.Fatalf("Invoke error = %v, want decode error", err)
	}
}

func TestClient_InvokeUnreachableIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := newTestClient(t, url)
	err := c.Invoke(context.Background(), CommandListCards, nil, nil)
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("Invoke error = %v, want *TransportError", err)
	}
}

func TestDetect(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(healthy.Close)

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(unhealthy.Close)

	opts := ClientOptions{Logger: zerolog.Nop()}

	tests := []struct {
		name      string
		url       string
		available bool
	}{
		{"empty url", "  ", false},
		{"unhealthy host", unhealthy.URL, false},
		{"healthy host", healthy.URL, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge, err := Detect(context.Background(), tt.url, opts)
			if bridge == nil {
				t.Fatalf("Detect returned nil bridge")
			}
			t.Cleanup(func() { _ = bridge.Close() })
			if bridge.Available() != tt.available {
				t.Fatalf("Available() = %v, want %v (err=%v)", bridge.Available(), tt.available, err)
			}
			if tt.available && err != nil {
				t.Fatalf("Detect error = %v, want nil", err)
			}
			if !tt.available && !errors.Is(err, ErrUnavailable) {
				t.Fatalf("Detect error = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestInert_RejectsEverything(t *testing.T) {
	var b Bridge = Inert{}
	if b.Available() {
		t.Fatalf("Inert.Available() = true")
	}
	if _, err := b.Listen(context.Background(), EventCardCreated, func(Event) {}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Listen error = %v, want ErrUnavailable", err)
	}
	if err := b.Invoke(context.Background(), CommandListCards, nil, nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Invoke error = %v, want ErrUnavailable", err)
	}
}

func TestEvent_DecodeCard(t *testing.T) {
	evt := NewCardEvent(Card{ID: 3, Front: "F", Back: "B"})
	card, err := evt.DecodeCard()
	if err != nil {
		t.Fatalf("DecodeCard returned error: %v", err)
	}
	if card.ID != 3 || card.Tags == nil {
		t.Fatalf("card = %#v, want id=3 with non-nil tags", card)
	}

	for _, raw := range []string{"", "null", "{bad"} {
		evt := Event{Name: EventCardCreated, Payload: json.RawMessage(raw)}
		if _, err := evt.DecodeCard(); err == nil {
			t.Fatalf("DecodeCard(%q) returned nil error", raw)
		}
	}
}

func TestCard_CloneIsIndependent(t *testing.T) {
	orig := Card{ID: 1, Tags: []string{"a", "b"}}
	dup := orig.Clone()
	dup.Tags[0] = "z"
	if orig.Tags[0] != "a" {
		t.Fatalf("Clone shares tag storage")
	}
	if got := CloneCards(nil); got != nil {
		t.Fatalf("CloneCards(nil) = %#v, want nil", got)
	}
}
