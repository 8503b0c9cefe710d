package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/oakley-srs/oakley/internal/session"
)

// OverlayStyle selects how the review overlay is laid out.
type OverlayStyle string

const (
	StylePanel   OverlayStyle = "panel"
	StyleMinimal OverlayStyle = "minimal"
	StyleCompact OverlayStyle = "compact"
)

var overlayStyles = []OverlayStyle{StylePanel, StyleMinimal, StyleCompact}

// ParseOverlayStyle maps a config or prefs value to a style. Unknown values
// fall back to panel.
func ParseOverlayStyle(name string) OverlayStyle {
	s := OverlayStyle(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range overlayStyles {
		if s == known {
			return s
		}
	}
	return StylePanel
}

// NextOverlayStyle returns the next style in the cycle.
func NextOverlayStyle(current OverlayStyle) OverlayStyle {
	for i, s := range overlayStyles {
		if s == current {
			return overlayStyles[(i+1)%len(overlayStyles)]
		}
	}
	return overlayStyles[0]
}

// Field identifies one of the two editable card fields.
type Field int

const (
	FieldFront Field = iota
	FieldBack
)

func (f Field) String() string {
	if f == FieldBack {
		return "Back"
	}
	return "Front"
}

// OverlayView is everything RenderOverlay needs. FrontView and BackView are
// the rendered editors; when empty the draft text is shown instead.
type OverlayView struct {
	Session   session.Session
	Spinner   string
	FrontView string
	BackView  string
	Focus     Field
	Hints     string
	Style     OverlayStyle
	Theme     Theme
	Width     int
}

// overlayWidth is the panel width used when the terminal size is unknown.
const overlayWidth = 64

// RenderOverlay renders the overlay for the session. It returns "" when
// the overlay is hidden.
func RenderOverlay(v OverlayView) string {
	switch v.Session.Phase {
	case session.Generating:
		return renderGenerating(v)
	case session.Reviewing:
		return renderReview(v)
	default:
		return ""
	}
}

func renderGenerating(v OverlayView) string {
	styles := v.Theme.Styles()
	line := strings.TrimSpace(v.Spinner + " " + styles.Text.Render("Generating card…"))
	if v.Style == StyleCompact {
		return line
	}
	hint := styles.FaintText.Render("esc hide")
	return frame(v, line+"\n"+hint)
}

func renderReview(v OverlayView) string {
	styles := v.Theme.Styles()
	s := v.Session

	front := v.FrontView
	if front == "" {
		front = s.Draft.Front
	}
	back := v.BackView
	if back == "" {
		back = s.Draft.Back
	}

	var b strings.Builder
	title := fmt.Sprintf("Card #%d", s.Card.ID)
	if s.Dirty() {
		title += " (edited)"
	}
	b.WriteString(styles.AccentText.Bold(true).Render(title))
	b.WriteString("\n")

	switch v.Style {
	case StyleCompact:
		b.WriteString(fieldLabel(styles, FieldFront, v.Focus, "F ") + front + "\n")
		b.WriteString(fieldLabel(styles, FieldBack, v.Focus, "B ") + back + "\n")
	default:
		b.WriteString(fieldLabel(styles, FieldFront, v.Focus, "Front") + "\n")
		b.WriteString(front + "\n")
		if v.Style == StylePanel {
			b.WriteString("\n")
		}
		b.WriteString(fieldLabel(styles, FieldBack, v.Focus, "Back") + "\n")
		b.WriteString(back + "\n")
	}

	if tags := renderTags(s.Card.Tags); tags != "" {
		b.WriteString(styles.InfoText.Render(tags) + "\n")
	}

	switch s.Pending {
	case session.ActionSave:
		b.WriteString(styles.WarningText.Render(v.Spinner + " Saving…"))
	case session.ActionDiscard:
		b.WriteString(styles.WarningText.Render(v.Spinner + " Discarding…"))
	default:
		b.WriteString(styles.FaintText.Render(v.Hints))
	}
	if s.Notice != "" {
		b.WriteString("\n" + styles.DangerText.Render(s.Notice))
	}

	if v.Style == StyleCompact {
		return b.String()
	}
	return frame(v, b.String())
}

func fieldLabel(styles Styles, f, focus Field, text string) string {
	if f == focus {
		return styles.AccentText.Bold(true).Render(text)
	}
	return styles.MutedText.Render(text)
}

func renderTags(tags []string) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		parts = append(parts, "#"+t)
	}
	return strings.Join(parts, " ")
}

// frame wraps content in the border of the panel style. Minimal keeps the
// padding and drops the border.
func frame(v OverlayView, content string) string {
	width := overlayWidth
	if v.Width > 0 && v.Width-4 < width {
		width = max(v.Width-4, 20)
	}
	style := lipgloss.NewStyle().Padding(0, 1).Width(width)
	if v.Style == StylePanel {
		style = style.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(v.Theme.BorderFocus)).
			Padding(1, 2)
	}
	return style.Render(content)
}

// editorWidth is the textarea width that fits inside the overlay frame.
func editorWidth(termWidth int, style OverlayStyle) int {
	width := overlayWidth
	if termWidth > 0 && termWidth-4 < width {
		width = max(termWidth-4, 20)
	}
	switch style {
	case StylePanel:
		return width - 4
	case StyleCompact:
		return max(width-2, 10)
	default:
		return width - 2
	}
}
