// Package prefs stores the choices a user makes inside the overlay: the
// colour theme cycled with T and the overlay style cycled with S. They live
// apart from config.toml so the UI can rewrite them without touching
// hand-edited configuration.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/oakley-srs/oakley/internal/config"
)

// Prefs are the persisted overlay choices.
type Prefs struct {
	// Theme names a ui theme. Unknown names are kept; the UI falls back to
	// its default when rendering.
	Theme string `toml:"theme"`
	// OverlayStyle replaces overlay.style from config.toml when set. Empty
	// means the configured style applies.
	OverlayStyle string `toml:"overlay_style,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/oakley/prefs.toml"
	defaultTheme     = "Dracula"
)

var overlayStyles = map[string]bool{"panel": true, "minimal": true, "compact": true}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// DefaultTheme is the theme used when none is stored.
func DefaultTheme() string {
	return defaultTheme
}

// Load reads the preferences at path (empty uses DefaultPath). A missing
// file is not an error. An unreadable or malformed file still yields usable
// defaults, together with the error so the caller can log it.
func Load(path string) (Prefs, error) {
	defaults := Prefs{Theme: defaultTheme}

	resolved, err := resolvePath(path)
	if err != nil {
		return defaults, err
	}
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return defaults, nil
	case err != nil:
		return defaults, fmt.Errorf("read prefs: %w", err)
	}

	var p Prefs
	if err := toml.Unmarshal(data, &p); err != nil {
		return defaults, fmt.Errorf("parse prefs %s: %w", resolved, err)
	}
	return p.normalized(), nil
}

func (p Prefs) normalized() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	p.OverlayStyle = strings.ToLower(strings.TrimSpace(p.OverlayStyle))
	if !overlayStyles[p.OverlayStyle] {
		p.OverlayStyle = ""
	}
	return p
}

// Save replaces the preferences file. The new contents are written to a
// temporary file first so a crash never leaves a truncated file behind.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	return config.ExpandPath(path)
}
