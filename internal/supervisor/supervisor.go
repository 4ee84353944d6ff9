package supervisor

import (
	"context"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/joergh/scubywasm/internal/worker"
)

// Options configures one supervisor run.
type Options struct {
	EnginePath       string
	AgentsDir        string
	LogDir           string
	Workers          int
	Seed             uint64
	Multiplicity     int
	FuelEnabled      bool
	FuelLimit        uint64
	MaxTicks         int
	MemoryLimitBytes int64
	ExePath          string // re-exec target, normally os.Executable()
}

// Run drives matches back to back until an interrupt or terminate signal
// is received, at which point no further matches are submitted and
// in-flight ones are allowed to drain. It returns once the pool has fully
// drained.
func Run(ctx context.Context, opts Options) error {
	teamNames, agentPaths, err := SelectAgents(opts.AgentsDir)
	if err != nil {
		return err
	}
	if len(agentPaths) == 0 {
		log.Warn().Str("agents_dir", opts.AgentsDir).Msg("supervisor: no agent files found, nothing to run")
		return nil
	}

	logger, err := NewLogger(opts.LogDir)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(ctx, opts.ExePath, opts.Workers)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xdeadbeef))

	submitDone := make(chan struct{})
	go func() {
		defer close(submitDone)
		defer pool.Close()
		for {
			select {
			case <-sigCtx.Done():
				log.Info().Msg("supervisor: shutdown signal received, draining in-flight matches")
				return
			default:
			}
			seed := rng.Uint64()
			pool.Submit(worker.MatchParams{
				EnginePath:       opts.EnginePath,
				AgentPaths:       agentPaths,
				Multiplicity:     opts.Multiplicity,
				Seed:             seed,
				FuelEnabled:      opts.FuelEnabled,
				FuelLimit:        opts.FuelLimit,
				MaxTicks:         opts.MaxTicks,
				MemoryLimitBytes: opts.MemoryLimitBytes,
				TeamNames:        teamNames,
			})
		}
	}()

	for res := range pool.Results() {
		if res.Err != nil {
			log.Error().Err(res.Err).Msg("supervisor: match failed, continuing pool")
			continue
		}
		path, err := logger.Save(res.Log)
		if err != nil {
			log.Error().Err(err).Msg("supervisor: failed to save log, continuing pool")
			continue
		}
		log.Info().Str("path", path).Msg("supervisor: match log saved")
	}
	<-submitDone
	return nil
}
