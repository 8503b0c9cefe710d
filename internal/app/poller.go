package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/oakley-srs/oakley/internal/state"
)

const maxBackoff = 5 * time.Minute

// StartPoller launches a background goroutine that resyncs the card list
// every interval, backing off while the host keeps failing. It returns
// immediately. A non-positive interval disables it.
func StartPoller(ctx context.Context, syncer *state.Syncer, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		return
	}
	log = log.With().Str("component", "poller").Logger()
	go func() {
		// The overlay fetches the list on startup, so wait one interval first.
		timer := time.NewTimer(interval)
		defer timer.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			if ctx.Err() != nil {
				return
			}

			if err := syncer.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
			} else {
				failures = 0
			}

			next := calculateBackoff(failures, interval)
			if failures > 0 {
				log.Debug().Int("failures", failures).Dur("next", next).Msg("resync backing off")
			}
			timer.Reset(next)
		}
	}()
}

// calculateBackoff doubles base per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
