package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// diagnostics shows the tail of oakley's own log file.
type diagnostics struct {
	open     bool
	path     string
	viewport viewport.Model
	lines    []string
	err      error
}

func newDiagnostics(path string) diagnostics {
	return diagnostics{path: path, viewport: viewport.New(0, 0)}
}

func (d *diagnostics) resize(width, height int) {
	d.viewport.Width = width
	d.viewport.Height = max(height, 1)
}

func (d *diagnostics) load() tea.Cmd {
	if strings.TrimSpace(d.path) == "" {
		return nil
	}
	return loadDiagnosticsCmd(d.path, DiagnosticsLines)
}

func (d *diagnostics) apply(msg diagnosticsMsg) {
	d.lines = msg.lines
	d.err = msg.err
	d.viewport.SetContent(strings.Join(d.lines, "\n"))
	d.viewport.GotoBottom()
}

func (d diagnostics) render(theme Theme) string {
	styles := theme.Styles()
	switch {
	case strings.TrimSpace(d.path) == "":
		return styles.MutedText.Render("Logging is disabled (log.file is empty)")
	case d.err != nil:
		return styles.DangerText.Render("Could not read " + d.path + ": " + d.err.Error())
	case len(d.lines) == 0:
		return styles.MutedText.Render("No log entries in " + d.path)
	}
	return d.viewport.View()
}
