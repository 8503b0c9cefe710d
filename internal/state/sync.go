package state

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/oakley-srs/oakley/internal/host"
)

// Lister fetches the full card list.
type Lister interface {
	ListCards(ctx context.Context) ([]host.Card, error)
}

// Syncer refreshes a Store from a Lister.
type Syncer struct {
	store  *Store
	lister Lister
	log    zerolog.Logger
}

// NewSyncer binds store to lister.
func NewSyncer(store *Store, lister Lister, log zerolog.Logger) *Syncer {
	return &Syncer{
		store:  store,
		lister: lister,
		log:    log.With().Str("component", "sync").Logger(),
	}
}

// Store returns the store the syncer writes to.
func (s *Syncer) Store() *Store { return s.store }

// Refresh replaces the list with the host's. On failure the previous list
// stays in place and the error is recorded and returned.
func (s *Syncer) Refresh(ctx context.Context) error {
	cards, err := s.lister.ListCards(ctx)
	s.store.Update(cards, err)
	if err != nil {
		s.log.Warn().Err(err).Msg("card list refresh failed, keeping previous list")
		return err
	}
	s.log.Debug().Int("cards", len(cards)).Msg("card list refreshed")
	return nil
}
