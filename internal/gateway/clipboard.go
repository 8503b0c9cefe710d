package gateway

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
)

// Clipboard is the text source for generation requests.
type Clipboard interface {
	ReadText() (string, error)
}

// ClipboardFunc adapts a function to Clipboard.
type ClipboardFunc func() (string, error)

func (f ClipboardFunc) ReadText() (string, error) { return f() }

// SystemClipboard reads the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) ReadText() (string, error) {
	if clipboard.Unsupported {
		return "", errors.New("no clipboard utility found")
	}
	return clipboard.ReadAll()
}

// ReadClipboard reads c once. Errors and blank content both become
// ErrClipboardUnavailable.
func ReadClipboard(c Clipboard) (string, error) {
	if c == nil {
		return "", &Error{Op: "read clipboard", Kind: ErrClipboardUnavailable, Err: errors.New("no clipboard")}
	}
	text, err := c.ReadText()
	if err != nil {
		return "", &Error{Op: "read clipboard", Kind: ErrClipboardUnavailable, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &Error{Op: "read clipboard", Kind: ErrClipboardUnavailable, Err: errors.New("clipboard is empty")}
	}
	return text, nil
}
