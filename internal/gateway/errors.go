package gateway

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker"

	"github.com/oakley-srs/oakley/internal/host"
)

// Failure kinds. Every error returned by a Gateway matches exactly one of
// them with errors.Is.
var (
	ErrBackendUnavailable   = errors.New("backend unavailable")
	ErrGenerationFailed     = errors.New("generation failed")
	ErrPersistFailed        = errors.New("persist failed")
	ErrDiscardFailed        = errors.New("discard failed")
	ErrListFetchFailed      = errors.New("list fetch failed")
	ErrClipboardUnavailable = errors.New("clipboard unavailable")

	// ErrStale marks a generation response superseded by a newer request.
	// It is not a failure and callers drop the result.
	ErrStale = errors.New("stale generation response")
)

// Error is a classified command failure.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// classify turns a bridge error into an *Error. Anything that means the host
// could not be reached is ErrBackendUnavailable; everything else is kind.
func classify(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	var transport *host.TransportError
	switch {
	case errors.Is(err, host.ErrUnavailable),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests),
		errors.As(err, &transport):
		kind = ErrBackendUnavailable
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Message renders err as a short notice for the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var base string
	switch {
	case errors.Is(err, ErrClipboardUnavailable):
		return "Clipboard is empty or unavailable"
	case errors.Is(err, ErrBackendUnavailable):
		return "Host is not reachable"
	case errors.Is(err, ErrGenerationFailed):
		base = "Card generation failed"
	case errors.Is(err, ErrPersistFailed):
		base = "Saving the card failed"
	case errors.Is(err, ErrDiscardFailed):
		base = "Discarding the card failed"
	case errors.Is(err, ErrListFetchFailed):
		base = "Could not load cards"
	default:
		return err.Error()
	}
	var rejected *host.CommandError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return base + ": " + rejected.Message
	}
	return base
}
