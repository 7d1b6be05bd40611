package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avelis/Parley/internal/core"
	"github.com/avelis/Parley/internal/domain"
)

// Sweeper periodically reclaims idle rooms. It runs through the same engine
// lock as request handlers, so it can never delete a room a join just
// repopulated.
type Sweeper struct {
	Engine    *core.Engine
	Interval  time.Duration
	Threshold time.Duration

	// OnReclaim runs after rooms were removed, outside the engine lock.
	// Wired to the stats refresh broadcast.
	OnReclaim func(removed []domain.Secret)
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	log.Info().Str("module", "app.sweeper").Dur("interval", s.Interval).Dur("threshold", s.Threshold).Msg("idle sweep started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("idle sweep stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	removed := s.Engine.SweepIdle(s.Threshold)
	if len(removed) == 0 {
		return
	}
	log.Info().Str("module", "app.sweeper").Int("reclaimed", len(removed)).Msg("idle rooms reclaimed")
	if s.OnReclaim != nil {
		s.OnReclaim(removed)
	}
}
