// Package state holds the card list shown next to the review overlay.
//
// # Overview
//
// The list is owned by this package alone. The review session never writes
// to it: an accepted card only appears once a refresh has fetched it back
// from the host, so whatever normalization the host applied is what gets
// displayed.
//
//	Writers:                        Readers:
//	┌──────────────────┐           ┌──────────────────┐
//	│ Syncer.Refresh() │           │ UI list view     │
//	│  (after save,    │──Update──→│ store.Snapshot() │
//	│   poller, 'r')   │  (mutex)  │   ↓ render       │
//	└──────────────────┘           └──────────────────┘
//
// # Update Semantics
//
//	// Success: replace the list
//	store.Update(cards, nil)
//	→ snapshot.Cards = cards
//	→ snapshot.Loaded = true, Refreshes++
//	→ snapshot.LastError = nil, ConsecutiveFailures = 0
//
//	// Failure: keep the list, record the error
//	store.Update(nil, err)
//	→ snapshot.Cards = <unchanged>
//	→ snapshot.LastError = err, ConsecutiveFailures++
//
// Both Update and Snapshot deep-copy the cards, including their tag slices.
//
// # Syncer
//
// Syncer couples a Store with anything that can list cards (the command
// gateway in production, a stub in tests). Concurrent refreshes are safe;
// the gateway coalesces them into one host request.
//
// The zero Store is ready to use.
package state
