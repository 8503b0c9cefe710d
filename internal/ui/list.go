package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/oakley-srs/oakley/internal/host"
)

// ListView is everything RenderList needs.
type ListView struct {
	Cards    []host.Card // already filtered, newest first as delivered
	Filter   string
	Selected int
	Width    int
	Height   int
	Loaded   bool
	Theme    Theme
}

// FilterCards keeps the cards whose text or tags fuzzy-match query,
// preserving order. A blank query returns cards unchanged.
func FilterCards(cards []host.Card, query string) []host.Card {
	query = strings.TrimSpace(query)
	if query == "" {
		return cards
	}
	out := make([]host.Card, 0, len(cards))
	for _, c := range cards {
		if fuzzy.MatchNormalizedFold(query, cardHaystack(c)) {
			out = append(out, c)
		}
	}
	return out
}

func cardHaystack(c host.Card) string {
	return c.Front + " " + c.Back + " " + strings.Join(c.Tags, " ")
}

// RenderList renders the visible window of the card list, one row per card.
func RenderList(v ListView) string {
	styles := v.Theme.Styles()
	if len(v.Cards) == 0 {
		switch {
		case strings.TrimSpace(v.Filter) != "":
			return styles.MutedText.Render(fmt.Sprintf("No cards match %q", v.Filter))
		case !v.Loaded:
			return styles.MutedText.Render("Loading cards…")
		default:
			return styles.MutedText.Render("No cards yet. Copy some text and press ctrl+g.")
		}
	}

	width := v.Width
	if width <= 0 {
		width = 80
	}
	start, end := listWindow(len(v.Cards), v.Selected, v.Height)

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		row := ansi.Truncate(formatRow(v.Cards[i]), width, "…")
		if i == v.Selected {
			row = styles.Selected.Width(width).Render(row)
		} else {
			row = styles.Text.Render(row)
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

func formatRow(c host.Card) string {
	row := fmt.Sprintf("#%-4d %s │ %s", c.ID, oneLine(c.Front), oneLine(c.Back))
	if tags := renderTags(c.Tags); tags != "" {
		row += "  " + tags
	}
	return row
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// listWindow returns the [start, end) range of rows to draw so the selected
// row stays visible.
func listWindow(total, selected, height int) (int, int) {
	if height <= 0 || total <= height {
		return 0, total
	}
	start := selected - height/2
	if start < 0 {
		start = 0
	}
	if start+height > total {
		start = total - height
	}
	return start, start + height
}

// clampSelection keeps a row index within [0, n).
func clampSelection(selected, n int) int {
	if n == 0 || selected < 0 {
		return 0
	}
	if selected >= n {
		return n - 1
	}
	return selected
}
