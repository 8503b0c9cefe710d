// Package session implements the review overlay state machine.
//
// Phases are Idle, Generating and Reviewing, with Closed passed through on
// save or discard. Host events (hotkey, card_generating, card_created) and
// user actions are the only inputs; every input returns a Transition.
//
// Ordering rules:
//
//   - Any phase may enter Generating. A newer capture preempts a review.
//   - card_created enters Reviewing from any phase, replacing the card and
//     resetting the draft.
//   - Command results carry the epoch they were started at. A result whose
//     epoch is no longer current is ignored, except that a successful save
//     is still reported as Persisted so the card list can be refreshed.
//
// The machine holds no locks. It is driven from the Bubble Tea update loop.
package session
