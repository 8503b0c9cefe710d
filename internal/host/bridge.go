package host

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable reports that no host bridge is present.
var ErrUnavailable = errors.New("host bridge unavailable")

// Handler receives events for a subscribed name.
type Handler func(Event)

// Unlisten removes a listener. Calling it more than once is harmless.
type Unlisten func()

// Bridge is the only path to the host process: named events in, named
// commands out.
type Bridge interface {
	// Available reports whether a live host is behind the bridge.
	Available() bool
	// Listen registers h for events called name.
	Listen(ctx context.Context, name string, h Handler) (Unlisten, error)
	// Invoke runs command with args and decodes the result into dest
	// (nil discards it).
	Invoke(ctx context.Context, command string, args, dest any) error
	// Close releases connections held by the bridge.
	Close() error
}

// CommandError means the host was reached and rejected the command.
type CommandError struct {
	Command string
	Status  int
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected with status %d", e.Command, e.Status)
	}
	return fmt.Sprintf("%s rejected with status %d: %s", e.Command, e.Status, e.Message)
}

// TransportError means the host could not be reached at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Inert is the bridge used outside the host shell: it never subscribes and
// never issues commands.
type Inert struct{}

var _ Bridge = Inert{}

func (Inert) Available() bool { return false }

func (Inert) Listen(context.Context, string, Handler) (Unlisten, error) {
	return nil, ErrUnavailable
}

func (Inert) Invoke(context.Context, string, any, any) error {
	return ErrUnavailable
}

func (Inert) Close() error { return nil }
