// Command scubywasm-service-runner is the scenario service: a long-running
// process that watches /home/*/agents/*/*.wasm and drives one continuously
// restarting match pool per configured scenario.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/joergh/scubywasm/internal/scenario"
	"github.com/joergh/scubywasm/internal/worker"
)

var (
	flagEnginePath   string
	flagResultsDir   string
	flagScenarioFile string
	flagHomeRoot     string
	flagVerbose      bool
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == worker.ReexecSubcommand {
		runWorkerSubprocess()
		return
	}

	root := &cobra.Command{
		Use:   "scubywasm-service-runner",
		Short: "Watch for agent changes and run configured scenarios continuously",
		RunE:  runService,
	}
	root.Flags().StringVar(&flagEnginePath, "engine", "", "path to the engine WASM module (required)")
	root.Flags().StringVar(&flagResultsDir, "results_dir", "", "root directory for per-scenario results subdirectories (required)")
	root.Flags().StringVar(&flagScenarioFile, "scenario_file", "", "path to the scenario-file JSON array (required)")
	root.Flags().StringVar(&flagHomeRoot, "home_root", "/home", "root of the per-user agent tree")
	root.Flags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	_ = root.MarkFlagRequired("engine")
	_ = root.MarkFlagRequired("results_dir")
	_ = root.MarkFlagRequired("scenario_file")

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

func runService(cmd *cobra.Command, args []string) error {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	data, err := os.ReadFile(flagScenarioFile)
	if err != nil {
		return fmt.Errorf("read scenario file: %w", err)
	}
	scenarios, err := scenario.ParseFile(data)
	if err != nil {
		return &validationError{err.Error()}
	}
	if len(scenarios) == 0 {
		return &validationError{"scenario file must define at least one scenario"}
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	runners := make([]*scenario.Runner, len(scenarios))
	for i, s := range scenarios {
		resultsRoot := filepath.Join(flagResultsDir, s.Name)
		runners[i] = scenario.NewRunner(s, flagHomeRoot, resultsRoot, flagEnginePath, exePath)
	}

	scenario.Drive(context.Background(), runners)
	return nil
}

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
