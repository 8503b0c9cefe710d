package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/oakley-srs/oakley/internal/config"
	"github.com/oakley-srs/oakley/internal/gateway"
	"github.com/oakley-srs/oakley/internal/host"
	"github.com/oakley-srs/oakley/internal/prefs"
)

type fakeHost struct {
	mu    sync.Mutex
	cards []host.Card
	calls map[string][]json.RawMessage
}

func newFakeHost(t *testing.T) (*fakeHost, *httptest.Server) {
	t.Helper()
	h := &fakeHost{
		cards: []host.Card{
			{ID: 1, Front: "Photosynthesis", Back: "light to sugar", Tags: []string{"bio"}},
			{ID: 2, Front: "Mitochondria", Back: "powerhouse\nof the cell", Tags: []string{"bio", "cell"}},
		},
		calls: make(map[string][]json.RawMessage),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /invoke/{command}", func(w http.ResponseWriter, r *http.Request) {
		var args json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&args)
		command := r.PathValue("command")

		h.mu.Lock()
		h.calls[command] = append(h.calls[command], args)
		cards := h.cards
		h.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch command {
		case host.CommandListCards:
			_ = json.NewEncoder(w).Encode(cards)
		case host.CommandGenerateCard:
			_ = json.NewEncoder(w).Encode(host.Card{ID: 9, Front: "What is ATP?", Back: "Energy currency", Tags: []string{"bio"}})
		default:
			_, _ = w.Write([]byte("null"))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return h, srv
}

func (h *fakeHost) callArgs(command string) []json.RawMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]json.RawMessage(nil), h.calls[command]...)
}

func testOptions(t *testing.T, bridgeURL string) Options {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	t.Setenv(config.EnvBridgeURL, "")
	contents := fmt.Sprintf("[bridge]\nurl = \"\"\n\n[log]\nfile = %q\nlevel = \"debug\"\n\n[list]\nresync_seconds = 0\n", filepath.Join(dir, "oakley.log"))
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return Options{
		ConfigPath: configPath,
		PrefsPath:  filepath.Join(dir, "prefs.toml"),
		BridgeURL:  bridgeURL,
	}
}

func TestSetup_DetectsHost(t *testing.T) {
	_, srv := newFakeHost(t)
	env, err := Setup(context.Background(), testOptions(t, srv.URL))
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() { _ = env.Close() }()

	if !env.Bridge.Available() {
		t.Fatal("bridge should be available")
	}
	if env.Config.Bridge.URL != srv.URL {
		t.Fatalf("bridge url = %q, want flag override %q", env.Config.Bridge.URL, srv.URL)
	}
	if env.Config.Log.Level != "debug" {
		t.Fatalf("log level = %q, want debug", env.Config.Log.Level)
	}
}

func TestSetup_UnreachableHostRunsInert(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	env, err := Setup(context.Background(), testOptions(t, url))
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() { _ = env.Close() }()

	if env.Bridge.Available() {
		t.Fatal("bridge should be inert")
	}
	_, err = env.Gateway.ListCards(context.Background())
	if !errors.Is(err, gateway.ErrBackendUnavailable) {
		t.Fatalf("ListCards error = %v, want ErrBackendUnavailable", err)
	}
}

func TestSetup_RejectsBadLogLevel(t *testing.T) {
	opts := testOptions(t, "")
	opts.LogLevel = "loud"
	if _, err := Setup(context.Background(), opts); err == nil {
		t.Fatal("expected validation error for log level")
	}
}

func TestEnv_OverlayStylePrefersPrefs(t *testing.T) {
	opts := testOptions(t, "")
	if err := prefs.Save(opts.PrefsPath, prefs.Prefs{Theme: "Slate", OverlayStyle: "compact"}); err != nil {
		t.Fatalf("save prefs: %v", err)
	}
	env, err := Setup(context.Background(), opts)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() { _ = env.Close() }()

	if got := env.OverlayStyle(); got != "compact" {
		t.Fatalf("OverlayStyle() = %q, want compact", got)
	}
	if env.Prefs.Theme != "Slate" {
		t.Fatalf("theme = %q, want Slate", env.Prefs.Theme)
	}

	env.Prefs.OverlayStyle = ""
	if got := env.OverlayStyle(); got != "panel" {
		t.Fatalf("OverlayStyle() = %q, want configured panel", got)
	}
}

func TestListCards_FiltersAndFlattens(t *testing.T) {
	_, srv := newFakeHost(t)
	var out bytes.Buffer
	if err := ListCards(context.Background(), testOptions(t, srv.URL), &out, "cell"); err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "ID") {
		t.Fatalf("output missing header:\n%s", got)
	}
	if !strings.Contains(got, "Mitochondria") || !strings.Contains(got, "powerhouse of the cell") || !strings.Contains(got, "bio,cell") {
		t.Fatalf("output missing card 2:\n%s", got)
	}
	if strings.Contains(got, "Photosynthesis") {
		t.Fatalf("filter did not exclude card 1:\n%s", got)
	}
}

func TestListCards_NoHost(t *testing.T) {
	err := ListCards(context.Background(), testOptions(t, ""), &bytes.Buffer{}, "")
	if !errors.Is(err, gateway.ErrBackendUnavailable) {
		t.Fatalf("ListCards error = %v, want ErrBackendUnavailable", err)
	}
}

func TestGenerate_AcceptSavesCard(t *testing.T) {
	h, srv := newFakeHost(t)
	var out bytes.Buffer
	err := Generate(context.Background(), testOptions(t, srv.URL), GenerateOptions{Text: "ATP stores energy", Accept: true}, &out)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(out.String(), "Card #9") || !strings.Contains(out.String(), "saved") {
		t.Fatalf("output = %q", out.String())
	}

	gen := h.callArgs(host.CommandGenerateCard)
	if len(gen) != 1 || !strings.Contains(string(gen[0]), "ATP stores energy") {
		t.Fatalf("generate_card args = %s", gen)
	}
	accepted := h.callArgs(host.CommandAcceptCard)
	if len(accepted) != 1 {
		t.Fatalf("accept_card calls = %d, want 1", len(accepted))
	}
	var args host.AcceptArgs
	if err := json.Unmarshal(accepted[0], &args); err != nil {
		t.Fatalf("decode accept args: %v", err)
	}
	if args.Card.ID != 9 || args.Card.Front != "What is ATP?" {
		t.Fatalf("accepted card = %+v", args.Card)
	}
	if n := len(h.callArgs(host.CommandDiscardCard)); n != 0 {
		t.Fatalf("discard_card calls = %d, want 0", n)
	}
}

func TestGenerate_DefaultDiscards(t *testing.T) {
	h, srv := newFakeHost(t)
	var out bytes.Buffer
	if err := Generate(context.Background(), testOptions(t, srv.URL), GenerateOptions{Text: "ATP"}, &out); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(out.String(), "discarded") {
		t.Fatalf("output = %q", out.String())
	}
	discarded := h.callArgs(host.CommandDiscardCard)
	if len(discarded) != 1 || !strings.Contains(string(discarded[0]), `"cardId":9`) {
		t.Fatalf("discard_card args = %s", discarded)
	}
	if n := len(h.callArgs(host.CommandAcceptCard)); n != 0 {
		t.Fatalf("accept_card calls = %d, want 0", n)
	}
}
