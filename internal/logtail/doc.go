// Package logtail reads the end of oakley's log file for the diagnostics
// view.
//
// # Reading
//
// Read uses a ring buffer of size maxLines, so only the last lines are kept
// in memory however large the file is:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line in file, store it at the current index and advance
//	3. Return the buffer starting at the oldest line
//
// A missing file returns nil, nil. Other I/O errors are returned wrapped.
//
// # Decoding
//
// The log is written by zerolog as JSON lines. Parse pulls out the standard
// fields (time, level, message, error) plus the "component" field every
// oakley logger carries, and keeps the rest as strings. Format renders an
// Entry as one plain line. Lines that are not JSON pass through unchanged.
package logtail
