package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/oakley-srs/oakley/internal/host"
)

// Snapshot represents the latest card list available to the UI.
type Snapshot struct {
	Cards               []host.Card
	Loaded              bool // at least one refresh succeeded
	Refreshes           int  // successful refreshes so far
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the host has been unreachable for multiple
// refreshes.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the card list.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the card list. When err is non-nil the previous list is
// kept and the error is recorded.
func (s *Store) Update(cards []host.Card, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Cards = host.CloneCards(cards)
	s.snapshot.Loaded = true
	s.snapshot.Refreshes++
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Cards = host.CloneCards(s.snapshot.Cards)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
