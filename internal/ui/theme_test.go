package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/oakley-srs/oakley/internal/prefs"
	"github.com/oakley-srs/oakley/internal/session"
	"github.com/oakley-srs/oakley/internal/state"
)

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	want := []string{"Dracula", "Nightfox", "Kanagawa", "Slate"}
	if len(names) != len(want) {
		t.Fatalf("ThemeNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("ThemeNames() = %v, want %v", names, want)
		}
		if GetTheme(names[i]).Name != names[i] {
			t.Fatalf("GetTheme(%q) returned %q", names[i], GetTheme(names[i]).Name)
		}
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Dracula"); got != "Nightfox" {
		t.Fatalf("NextTheme(Dracula) = %q, want Nightfox", got)
	}
	if got := NextTheme("Slate"); got != "Dracula" {
		t.Fatalf("NextTheme(Slate) = %q, want Dracula", got)
	}
	if got := NextTheme("Unknown"); got != "Dracula" {
		t.Fatalf("NextTheme(Unknown) = %q, want Dracula", got)
	}
}

func TestGetTheme_DefaultMatchesPrefs(t *testing.T) {
	if got := GetTheme(prefs.DefaultTheme()).Name; got != prefs.DefaultTheme() {
		t.Fatalf("default prefs theme %q resolves to %q", prefs.DefaultTheme(), got)
	}
	if got := GetTheme("Nord").Name; got != "Dracula" {
		t.Fatalf("GetTheme(Nord) = %q, want Dracula fallback", got)
	}
}

func TestBadge_FallsBackToMuted(t *testing.T) {
	th := GetTheme("Slate")
	styles := th.Styles()
	if got := styles.Badge("online").GetBackground(); got != lipgloss.Color(th.BadgeColors["online"]) {
		t.Fatalf("online badge background = %v", got)
	}
	if got := styles.Badge("mystery").GetBackground(); got != lipgloss.Color(th.Muted) {
		t.Fatalf("unknown badge background = %v, want muted %s", got, th.Muted)
	}
}

func TestBridgeState(t *testing.T) {
	tests := []struct {
		name      string
		available bool
		breaker   string
		snap      state.Snapshot
		want      string
	}{
		{"no host", false, "closed", state.Snapshot{}, bridgeInert},
		{"healthy", true, "closed", state.Snapshot{}, bridgeOnline},
		{"one failure", true, "closed", state.Snapshot{ConsecutiveFailures: 1}, bridgeOnline},
		{"repeated failures", true, "closed", state.Snapshot{ConsecutiveFailures: 2}, bridgeOffline},
		{"breaker open", true, "open", state.Snapshot{}, bridgeOffline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bridgeState(tt.available, tt.breaker, tt.snap); got != tt.want {
				t.Fatalf("bridgeState = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{4 * time.Second, "4s"},
		{3*time.Minute + 10*time.Second, "3m"},
		{2*time.Hour + time.Minute, "2h"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.in); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderHeader(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	tests := []struct {
		name string
		view statusView
		want []string
	}{
		{
			name: "inert and never synced",
			view: statusView{Bridge: bridgeInert, Phase: session.Idle},
			want: []string{"oakley", "inert", "0 cards", "never synced"},
		},
		{
			name: "filtered with failure notice",
			view: statusView{
				Bridge:   bridgeOnline,
				Live:     true,
				Phase:    session.Generating,
				Cards:    3,
				Shown:    1,
				LastSync: now.Add(-12 * time.Second),
				SyncErr:  true,
				Filter:   "go",
				Notice:   "Host is not reachable",
				Failed:   true,
			},
			want: []string{"online", "generating", "1/3 cards", "sync failed 12s ago", "/go", "Host is not reachable"},
		},
		{
			name: "online without events",
			view: statusView{Bridge: bridgeOnline, Cards: 2, Shown: 2, LastSync: now.Add(-2 * time.Minute)},
			want: []string{"no live events", "2 cards", "synced 2m ago"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.view.Now = now
			tt.view.Theme = GetTheme("")
			got := ansi.Strip(renderHeader(tt.view))
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("header %q missing %q", got, want)
				}
			}
		})
	}
}

func TestDiagnostics_Render(t *testing.T) {
	th := GetTheme("")

	d := newDiagnostics("")
	if got := ansi.Strip(d.render(th)); !strings.Contains(got, "Logging is disabled") {
		t.Fatalf("disabled render = %q", got)
	}

	d = newDiagnostics("/tmp/oakley.log")
	d.apply(diagnosticsMsg{err: errors.New("permission denied")})
	if got := ansi.Strip(d.render(th)); !strings.Contains(got, "permission denied") {
		t.Fatalf("error render = %q", got)
	}

	d.resize(80, 5)
	d.apply(diagnosticsMsg{lines: []string{"12:00:00 INFO [gateway] ready"}})
	if got := ansi.Strip(d.render(th)); !strings.Contains(got, "[gateway] ready") {
		t.Fatalf("render = %q", got)
	}
}
