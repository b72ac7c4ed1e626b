package convstate

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RunSweeper removes expired states from store every interval until ctx is done.
// onSwept, when set, receives the number of states removed by each pass.
func RunSweeper(ctx context.Context, store Store, interval time.Duration, onSwept func(n int), logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	log := logger.With().Str("component", "convstate-sweeper").Logger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("state sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("state sweeper stopped")
			return
		case <-ticker.C:
			n, err := store.Sweep(ctx)
			if err != nil {
				log.Error().Err(err).Msg("state sweep failed")
				continue
			}
			if onSwept != nil {
				onSwept(n)
			}
			if n > 0 {
				log.Debug().Int("removed", n).Msg("expired sessions swept")
			}
		}
	}
}
