package match

import (
	"fmt"
	"os"

	"github.com/joergh/scubywasm/internal/agent"
	"github.com/joergh/scubywasm/internal/engine"
	"github.com/joergh/scubywasm/internal/model"
	"github.com/joergh/scubywasm/internal/sandbox"
)

// BuildParams collects everything needed to assemble a real, WASM-backed
// Match. One agent module drives one team — multiplicity is passed into
// the agent's own init_agent call, not expressed as multiple agent
// instances.
type BuildParams struct {
	EnginePath       string
	AgentPaths       []string // one per team, in team order
	Multiplicity     int
	Seed             uint64
	Config           *model.Config // nil: read engine defaults
	FuelEnabled      bool
	FuelLimit        uint64
	FuelMultiplier   uint64 // 0 means agent.DefaultFuelMultiplier
	MemoryLimitBytes int64
	InitialPoses     []model.Pose // optional override; nil triggers generation
	LogSink          sandbox.LogSink
}

// Build instantiates the engine and one agent module per team, derives
// seeds and initial poses from Seed, registers every ship, and returns a
// ready-to-run Match. This is the one place real wasmtime sandboxes meet
// the pure Match runtime — everything downstream is exercised by
// match_test.go's fakes, independent of the wasmtime toolchain.
func Build(p BuildParams) (*Match, error) {
	engineBytes, err := os.ReadFile(p.EnginePath)
	if err != nil {
		return nil, fmt.Errorf("match: read engine: %w", err)
	}
	eng, err := engine.New(engineBytes, p.Config, p.LogSink)
	if err != nil {
		return nil, fmt.Errorf("match: engine construction: %w", err)
	}
	cfg := eng.Config()

	n := len(p.AgentPaths)
	total := n * p.Multiplicity
	rng := NewRNG(p.Seed)
	seeds := deriveSeeds(rng, n)

	poses := p.InitialPoses
	if poses == nil {
		poses = generatePoses(rng, total)
	}
	if len(poses) != total {
		return nil, fmt.Errorf("match: expected %d initial poses, got %d", total, len(poses))
	}

	teams := make([]Team, n)
	poseIdx := 0
	for i, path := range p.AgentPaths {
		agentBytes, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("match: read agent %q: %w", path, err)
		}
		ag, err := agent.New(agentBytes, cfg, uint32(total), uint32(p.Multiplicity), seeds[i],
			p.FuelLimit, p.FuelEnabled, p.FuelMultiplier, p.MemoryLimitBytes, p.LogSink)
		if err != nil {
			return nil, fmt.Errorf("match: agent %q construction: %w", path, err)
		}

		ids := make([]uint32, p.Multiplicity)
		for j := 0; j < p.Multiplicity; j++ {
			id, err := eng.AddAgent(poses[poseIdx])
			if err != nil {
				return nil, fmt.Errorf("match: add_agent: %w", err)
			}
			ids[j] = id
			poseIdx++
		}
		teams[i] = Team{Agent: ag, IDs: ids}
	}

	return New(eng, teams, p.FuelEnabled), nil
}

// RunUntil drives m tick-by-tick (one engine tick per call) until at most
// one team remains alive or maxTicks is reached: its last tick always has
// teams_alive <= 1 or ticks == max_ticks.
func RunUntil(m *Match, maxTicks int) error {
	for {
		teamsAlive, err := m.Tick(1)
		if err != nil {
			return err
		}
		if teamsAlive <= 1 || m.CurrentTick() >= maxTicks {
			return nil
		}
	}
}

// FinalScores returns each team's last logged aggregate score.
func (m *Match) FinalScores() []int32 {
	out := make([]int32, len(m.logs))
	for i, tl := range m.logs {
		if n := len(tl.Scores); n > 0 {
			out[i] = tl.Scores[n-1]
		}
	}
	return out
}
