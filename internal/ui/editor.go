package ui

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/oakley-srs/oakley/internal/session"
)

// editor holds the two card field editors. The session draft is the source
// of truth; the editors are reset from it whenever a new card arrives and
// every keystroke is written back.
type editor struct {
	front textarea.Model
	back  textarea.Model
	focus Field
}

func newEditor() editor {
	return editor{
		front: newField("Question"),
		back:  newField("Answer"),
	}
}

func newField(placeholder string) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetHeight(3)
	return ta
}

// reset loads d into both fields and focuses the front.
func (e *editor) reset(d session.Draft) tea.Cmd {
	e.front.SetValue(d.Front)
	e.back.SetValue(d.Back)
	e.focus = FieldFront
	e.back.Blur()
	return e.front.Focus()
}

func (e *editor) blur() {
	e.front.Blur()
	e.back.Blur()
}

// toggle moves focus to the other field.
func (e *editor) toggle() tea.Cmd {
	if e.focus == FieldFront {
		e.focus = FieldBack
		e.front.Blur()
		return e.back.Focus()
	}
	e.focus = FieldFront
	e.back.Blur()
	return e.front.Focus()
}

func (e *editor) setWidth(w int) {
	e.front.SetWidth(w)
	e.back.SetWidth(w)
}

// update forwards msg to the focused field.
func (e *editor) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if e.focus == FieldBack {
		e.back, cmd = e.back.Update(msg)
	} else {
		e.front, cmd = e.front.Update(msg)
	}
	return cmd
}

func (e editor) draft() session.Draft {
	return session.Draft{Front: e.front.Value(), Back: e.back.Value()}
}
