package scenario

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

// Drive starts one goroutine per scenario, each looping Step until a
// shutdown signal is received, then returns once every scenario's current
// round has finished. Every scenario gets its own worker, and each worker
// re-submits itself after every completed round.
func Drive(ctx context.Context, runners []*Runner) {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(len(runners))
	for _, r := range runners {
		go func(r *Runner) {
			defer wg.Done()
			for {
				select {
				case <-sigCtx.Done():
					log.Info().Str("scenario", r.def.Name).Msg("scenario: shutdown signal received, stopping after current round")
					return
				default:
				}
				if err := r.Step(ctx); err != nil {
					log.Error().Err(err).Str("scenario", r.def.Name).Msg("scenario: step failed, retrying")
				}
			}
		}(r)
	}
	wg.Wait()
}
