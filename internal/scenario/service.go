package scenario

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/joergh/scubywasm/internal/supervisor"
	"github.com/joergh/scubywasm/internal/worker"
)

// idleSleep is how long a scenario runner sleeps when there is nothing to
// do this round: no agents discovered, or the round cap is reached.
const idleSleep = 5 * time.Second

// Runner drives one scenario's long-running loop: restart detection,
// idempotent agent copy into a timestamped results directory, one match
// per round, and log persistence through the same naming discipline as
// the supervisor.
type Runner struct {
	def         Scenario
	homeRoot    string
	resultsRoot string
	enginePath  string
	exePath     string

	prevAgents []DiscoveredAgent
	resultsDir string
	round      int
	logger     *supervisor.Logger
	copied     map[string]bool
	seed       uint64
}

// NewRunner builds a Runner for one scenario definition. homeRoot is
// normally "/home"; resultsRoot is RESULTS_DIR/<scenario.Name>. The match
// seed is drawn once here and reused for every round and every restart
// over the Runner's whole lifetime, so the scenario's output is
// reproducible from a single seed rather than a fresh one each round.
func NewRunner(def Scenario, homeRoot, resultsRoot, enginePath, exePath string) *Runner {
	return &Runner{
		def:         def,
		homeRoot:    homeRoot,
		resultsRoot: resultsRoot,
		enginePath:  enginePath,
		exePath:     exePath,
		copied:      make(map[string]bool),
		seed:        rand.Uint64(),
	}
}

// Step runs one iteration of the scenario loop: gather agents, restart if
// the lineup changed, then either idle-sleep or run one round.
func (r *Runner) Step(ctx context.Context) error {
	agents, err := GatherAgents(r.homeRoot)
	if err != nil {
		return fmt.Errorf("scenario %s: gather agents: %w", r.def.Name, err)
	}

	if r.resultsDir == "" || NeedsRestart(r.prevAgents, agents) {
		if err := r.restart(agents); err != nil {
			return err
		}
	}

	if len(agents) == 0 || r.round >= r.def.MaxRounds {
		time.Sleep(idleSleep)
		return nil
	}

	agentPaths, err := r.copyAgents(agents)
	if err != nil {
		return fmt.Errorf("scenario %s: copy agents: %w", r.def.Name, err)
	}

	matchLog, err := worker.RunInSubprocess(ctx, r.exePath, worker.MatchParams{
		EnginePath:   r.enginePath,
		AgentPaths:   agentPaths,
		Multiplicity: r.def.Multiplicity,
		FuelEnabled:  true,
		FuelLimit:    uint64(r.def.FuelLimit),
		MaxTicks:     r.def.MaxTicks,
		Seed:         r.seed,
		TeamNames:    agentNames(agents),
	})
	if err != nil {
		log.Error().Err(err).Str("scenario", r.def.Name).Msg("scenario: round failed, continuing")
		r.round++
		return nil
	}

	if path, err := r.logger.Save(matchLog); err != nil {
		log.Error().Err(err).Str("scenario", r.def.Name).Msg("scenario: failed to save log")
	} else {
		log.Info().Str("scenario", r.def.Name).Str("path", path).Int("round", r.round).Msg("scenario: round complete")
	}
	r.round++
	return nil
}

func (r *Runner) restart(agents []DiscoveredAgent) error {
	stamp := time.Now().Format("20060102-150405.000")
	dir := filepath.Join(r.resultsRoot, stamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("scenario %s: create results dir: %w", r.def.Name, err)
	}
	logger, err := supervisor.NewLogger(dir)
	if err != nil {
		return fmt.Errorf("scenario %s: init logger: %w", r.def.Name, err)
	}

	r.resultsDir = dir
	r.logger = logger
	r.round = 0
	r.prevAgents = agents
	r.copied = make(map[string]bool)
	log.Info().Str("scenario", r.def.Name).Str("results_dir", dir).Msg("scenario: restart, agent lineup changed")
	return nil
}

// copyAgents copies each discovered wasm into the results directory as
// <user>-<name>-<filename>.wasm, once per destination path, and returns
// the destination paths in the same order as agents.
func (r *Runner) copyAgents(agents []DiscoveredAgent) ([]string, error) {
	paths := make([]string, len(agents))
	for i, a := range agents {
		dest := filepath.Join(r.resultsDir, fmt.Sprintf("%s-%s-%s", a.User, a.Name, filepath.Base(a.Path)))
		paths[i] = dest
		if r.copied[dest] {
			continue
		}
		if err := copyFile(a.Path, dest); err != nil {
			return nil, err
		}
		r.copied[dest] = true
	}
	return paths, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %q: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %q to %q: %w", src, dest, err)
	}
	return nil
}

func agentNames(agents []DiscoveredAgent) []string {
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}
	return names
}
