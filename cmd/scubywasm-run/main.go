// Command scubywasm-run is the local runner: one engine, one agent module
// per team, run to completion, write a single JSON log. No process
// isolation and no worker pool — it is meant for interactive use against
// agents you trust enough to run in your own process.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/joergh/scubywasm/internal/match"
)

var (
	flagSeed         uint64
	flagMultiplicity int
	flagFuelLimit    int64
	flagMemoryLimit  int64
	flagMaxTicks     int
	flagOutput       string
	flagVerbose      bool
)

const (
	minMemoryLimit = 131072 // 2 wasm pages
	minFuelLimit   = 100
)

func main() {
	root := &cobra.Command{
		Use:   "scubywasm-run <engine.wasm> <agent.wasm>...",
		Short: "Run one match locally and write its history log",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runLocal,
	}
	root.Flags().Uint64Var(&flagSeed, "seed", 1, "master seed for agent seeds and initial poses")
	root.Flags().IntVar(&flagMultiplicity, "multiplicity", 1, "ships per team (must be >= 1)")
	root.Flags().Int64Var(&flagFuelLimit, "fuel_limit", 0, "per-tick fuel budget; 0 disables fuel metering, else must be >= 100")
	root.Flags().Int64Var(&flagMemoryLimit, "memory_limit", 64_000_000, "per-agent memory ceiling in bytes (must be >= 131072)")
	root.Flags().IntVar(&flagMaxTicks, "max_ticks", 1000, "maximum ticks before the match is stopped (must be >= 1)")
	root.Flags().StringVarP(&flagOutput, "output", "o", "scubywasm-log_0.json", "output log path")
	root.Flags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		if _, ok := err.(*validationError); ok {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func validateFlags() error {
	if flagMultiplicity < 1 {
		return &validationError{"multiplicity must be >= 1"}
	}
	if flagFuelLimit != 0 && flagFuelLimit < minFuelLimit {
		return &validationError{fmt.Sprintf("fuel_limit must be 0 (disabled) or >= %d", minFuelLimit)}
	}
	if flagMemoryLimit < minMemoryLimit {
		return &validationError{fmt.Sprintf("memory_limit must be >= %d", minMemoryLimit)}
	}
	if flagMaxTicks < 1 {
		return &validationError{"max_ticks must be >= 1"}
	}
	return nil
}

func runLocal(cmd *cobra.Command, args []string) error {
	if err := validateFlags(); err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	enginePath := args[0]
	agentPaths := args[1:]

	m, err := match.Build(match.BuildParams{
		EnginePath:       enginePath,
		AgentPaths:       agentPaths,
		Multiplicity:     flagMultiplicity,
		Seed:             flagSeed,
		FuelEnabled:      flagFuelLimit != 0,
		FuelLimit:        uint64(flagFuelLimit),
		MemoryLimitBytes: flagMemoryLimit,
		LogSink: func(line string) {
			log.Debug().Str("source", "guest").Msg(line)
		},
	})
	if err != nil {
		return fmt.Errorf("construct match: %w", err)
	}

	if err := match.RunUntil(m, flagMaxTicks); err != nil {
		return fmt.Errorf("run match: %w", err)
	}

	data, err := json.MarshalIndent(m.Log(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal log: %w", err)
	}
	if err := os.WriteFile(flagOutput, data, 0o644); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	log.Info().Str("path", flagOutput).Int("ticks", m.CurrentTick()).Msg("match complete")
	return nil
}
