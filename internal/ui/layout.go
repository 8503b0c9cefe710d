package ui

import "time"

// Chrome heights around the main body.
const (
	headerHeight = 1
	footerHeight = 1
)

// Diagnostics limits.
const (
	// DiagnosticsLines is the number of log lines loaded into the
	// diagnostics view.
	DiagnosticsLines = 500
)

// Timing constants.
const (
	// DefaultGenerationTimeout bounds how long the overlay waits for a card
	// after generation starts.
	DefaultGenerationTimeout = 90 * time.Second

	// StatusTick refreshes relative timestamps in the header.
	StatusTick = time.Second
)
