package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/oakley-srs/oakley/internal/session"
	"github.com/oakley-srs/oakley/internal/state"
)

// Bridge states shown in the header badge.
const (
	bridgeOnline  = "online"
	bridgeOffline = "offline"
	bridgeInert   = "inert"
)

// bridgeState summarizes host reachability for the header.
func bridgeState(available bool, breaker string, snap state.Snapshot) string {
	switch {
	case !available:
		return bridgeInert
	case breaker == "open" || snap.IsOffline():
		return bridgeOffline
	default:
		return bridgeOnline
	}
}

type statusView struct {
	Bridge   string
	Label    string
	Live     bool
	Phase    session.Phase
	Cards    int
	Shown    int
	LastSync time.Time
	SyncErr  bool
	Filter   string
	Notice   string
	Failed   bool
	Now      time.Time
	Theme    Theme
	Width    int
}

func renderHeader(v statusView) string {
	styles := v.Theme.Styles()
	parts := []string{
		styles.Logo.Render("oakley"),
		styles.Badge(v.Bridge).Render(v.Bridge),
	}
	if v.Bridge == bridgeOnline && !v.Live {
		parts = append(parts, styles.WarningText.Render("no live events"))
	}
	if v.Phase == session.Generating || v.Phase == session.Reviewing {
		parts = append(parts, styles.Badge(v.Phase.String()).Render(v.Phase.String()))
	}
	if v.Label != "" {
		parts = append(parts, styles.FaintText.Render(v.Label))
	}

	count := fmt.Sprintf("%d cards", v.Cards)
	if v.Shown != v.Cards {
		count = fmt.Sprintf("%d/%d cards", v.Shown, v.Cards)
	}
	parts = append(parts, styles.MutedText.Render(count))
	parts = append(parts, styles.MutedText.Render(syncLabel(v)))
	if v.Filter != "" {
		parts = append(parts, styles.AccentText.Render("/"+v.Filter))
	}

	line := strings.Join(parts, "  ")
	if v.Notice != "" {
		notice := styles.SuccessText.Render(v.Notice)
		if v.Failed {
			notice = styles.DangerText.Render(v.Notice)
		}
		line += "  " + notice
	}
	if v.Width > 0 {
		line = ansi.Truncate(line, v.Width-2, "…")
	}
	return styles.Header.Width(max(v.Width, 0)).Render(line)
}

func syncLabel(v statusView) string {
	if v.LastSync.IsZero() {
		return "never synced"
	}
	prefix := "synced"
	if v.SyncErr {
		prefix = "sync failed"
	}
	return prefix + " " + formatAge(v.Now.Sub(v.LastSync)) + " ago"
}

// formatAge renders d coarsely: 4s, 3m, 2h.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", max(int(d.Seconds()), 0))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

func renderFooter(text string, theme Theme, width int) string {
	styles := theme.Styles()
	if width > 0 {
		text = ansi.Truncate(text, width-2, "…")
	}
	return styles.Footer.Width(max(width, 0)).Render(text)
}

// placeCenter centers block in a width x height area.
func placeCenter(width, height int, block string, theme Theme) string {
	if width <= 0 || height <= 0 {
		return block
	}
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		block,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
