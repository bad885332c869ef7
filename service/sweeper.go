package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dtp-labs/trustgate/ports"
)

// Sweeper periodically removes expired challenges and consumed challenges
// past their linger window.
type Sweeper struct {
	store    ports.ChallengeStore
	interval time.Duration
}

// NewSweeper creates a sweeper. A non-positive interval falls back to ten
// minutes.
func NewSweeper(store ports.ChallengeStore, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{store: store, interval: interval}
}

// Run sweeps on a ticker until the context is cancelled. It is meant to be
// started in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.Sweep(ctx); err != nil {
				log.Warn().Err(err).Msg("challenge sweep failed")
			}
		}
	}
}
