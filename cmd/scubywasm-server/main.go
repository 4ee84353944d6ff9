// Command scubywasm-server is the match supervisor: it selects one agent
// per team directory, runs back-to-back matches across a pool of worker
// processes, and persists logs with monotonic naming. It re-execs itself
// to spawn each worker — see internal/worker.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/joergh/scubywasm/internal/supervisor"
	"github.com/joergh/scubywasm/internal/worker"
)

var (
	flagEnginePath   string
	flagAgentsDir    string
	flagLogDir       string
	flagWorkers      int
	flagSeed         uint64
	flagMultiplicity int
	flagFuelLimit    int64
	flagMemoryLimit  int64
	flagMaxTicks     int
	flagVerbose      bool
)

const (
	minMemoryLimit = 131072
	minFuelLimit   = 100
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == worker.ReexecSubcommand {
		runWorkerSubprocess()
		return
	}

	root := &cobra.Command{
		Use:   "scubywasm-server",
		Short: "Run a pool of matches continuously against discovered agents",
		RunE:  runSupervisor,
	}
	root.Flags().StringVar(&flagEnginePath, "engine", "", "path to the engine WASM module (required)")
	root.Flags().StringVar(&flagAgentsDir, "agents_dir", "", "directory of <team>/agent-v<int>.wasm files (required)")
	root.Flags().StringVar(&flagLogDir, "log_dir", ".", "directory to write scubywasm-log_<n>.json into")
	root.Flags().IntVar(&flagWorkers, "workers", 4, "concurrent worker processes (must be >= 1)")
	root.Flags().Uint64Var(&flagSeed, "seed", 42, "master seed for the per-match seed stream")
	root.Flags().IntVar(&flagMultiplicity, "multiplicity", 1, "ships per team (must be >= 1)")
	root.Flags().Int64Var(&flagFuelLimit, "fuel_limit", 0, "per-tick fuel budget; 0 disables fuel metering, else must be >= 100")
	root.Flags().Int64Var(&flagMemoryLimit, "memory_limit", 64_000_000, "per-agent memory ceiling in bytes (must be >= 131072)")
	root.Flags().IntVar(&flagMaxTicks, "max_ticks", 1000, "maximum ticks per match (must be >= 1)")
	root.Flags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	_ = root.MarkFlagRequired("engine")
	_ = root.MarkFlagRequired("agents_dir")

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
	if flagWorkers < 1 {
		return &validationError{"workers must be >= 1"}
	}
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

func runSupervisor(cmd *cobra.Command, args []string) error {
	if err := validateFlags(); err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	return supervisor.Run(context.Background(), supervisor.Options{
		EnginePath:       flagEnginePath,
		AgentsDir:        flagAgentsDir,
		LogDir:           flagLogDir,
		Workers:          flagWorkers,
		Seed:             flagSeed,
		Multiplicity:     flagMultiplicity,
		FuelEnabled:      flagFuelLimit != 0,
		FuelLimit:        uint64(flagFuelLimit),
		MaxTicks:         flagMaxTicks,
		MemoryLimitBytes: flagMemoryLimit,
		ExePath:          exePath,
	})
}

// runWorkerSubprocess is the hidden re-exec entrypoint: read MatchParams
// JSON from stdin, run the match, write its MatchLog JSON to stdout.
func runWorkerSubprocess() {
	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read stdin:", err)
		os.Exit(1)
	}
	var out bytes.Buffer
	if err := worker.RunMatchMain(input, &out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Stdout.Write(out.Bytes())
}
