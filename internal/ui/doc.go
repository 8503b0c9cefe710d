// Package ui provides the Bubble Tea terminal overlay for oakley.
//
// # Architecture Overview
//
// Model is the single owner of the review session. Every session.Machine
// transition runs inside Update; commands against the host run in tea.Cmds
// and come back as result messages tagged with the session epoch they were
// started from, so a late result for a replaced card is ignored.
//
// Host events arrive on the websocket reader goroutine. The subscription
// sink forwards them into a channel and waitForHostEvent hands them to
// Update one at a time, in arrival order, re-arming after each one.
//
// # Rendering
//
// RenderOverlay and RenderList are pure functions of their view structs.
// The overlay is empty while Idle, shows a spinner while Generating and the
// two field editors with tags, card id and action hints while Reviewing.
// Overlay styles (panel, minimal, compact) change the layout only; colour
// themes are cycled with T and stored in prefs.
//
// # Key Bindings
//
//   - ctrl+g: Generate a card from the clipboard
//   - tab: Switch between front and back while reviewing
//   - ctrl+s: Save the card under review
//   - esc: Discard the card under review, or hide the generating overlay
//   - /: Filter the card list
//   - r: Refresh the card list
//   - L: Diagnostics log
//   - T / S: Cycle theme / overlay style
//   - ?: Help
//   - q or ctrl+c: Quit
package ui
