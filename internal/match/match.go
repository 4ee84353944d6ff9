// Package match owns one engine binding and N agent bindings, drives the
// five-phase per-tick protocol, and accumulates the resulting history log.
// EngineAPI and AgentAPI are the seams that let the runtime be exercised
// against fakes in tests, without a compiled WASM module or the wasmtime
// toolchain.
package match

import (
	"fmt"

	"github.com/joergh/scubywasm/internal/model"
)

// EngineAPI is the subset of engine.Binding the match runtime depends on.
type EngineAPI interface {
	Config() model.Config
	AddAgent(pose model.Pose) (uint32, error)
	SetAction(agentID uint32, action int32) error
	Tick(n int) error
	ShipPose(agentID uint32) (model.Pose, error)
	ShotPose(agentID uint32) (model.Pose, int32, error)
	IsAlive(agentID uint32) (bool, error)
	Score(agentID uint32) (int32, error)
}

// AgentAPI is the subset of agent.Binding the match runtime depends on.
type AgentAPI interface {
	Refuel() error
	FuelLevel() *uint64
	Trapped() bool
	ClearWorldState()
	UpdateShip(otherAgentID uint32, alive bool, pose model.Pose)
	UpdateShot(otherAgentID uint32, lifetime int32, pose model.Pose)
	UpdateScore(otherAgentID uint32, score int32)
	MakeAction(agentID uint32, tick int) *int32
}

// Team is one registered team: the agent driving it and the dense agent
// ids the engine assigned its ships, in registration order.
type Team struct {
	Agent AgentAPI
	IDs   []uint32
}

// Match drives one engine and N agents through the tick protocol.
type Match struct {
	engine     EngineAPI
	teams      []Team
	allIDs     []uint32 // flat, team order then id order, matches teams[].IDs concatenated
	idToAgent  map[uint32]int // agent id -> team index
	tick       int
	fuelOn     bool
	logs       []*teamLog
}

// New builds a Match from an already-constructed engine and a fixed set of
// teams (each already registered with the engine, producing IDs). Real
// construction — instantiating WASM, deriving seeds, generating poses,
// calling AddAgent — is orchestrated by Build (build.go), which the cmd/
// binaries and internal/worker call; New only wires the runtime once ids are known, which is
// what makes it independently testable with fakes.
func New(engine EngineAPI, teams []Team, fuelEnabled bool) *Match {
	m := &Match{
		engine:    engine,
		teams:     teams,
		idToAgent: make(map[uint32]int),
		fuelOn:    fuelEnabled,
	}
	for ti, t := range teams {
		for _, id := range t.IDs {
			m.allIDs = append(m.allIDs, id)
			m.idToAgent[id] = ti
		}
		m.logs = append(m.logs, newTeamLog(t.IDs))
	}
	return m
}

// Tick runs exactly one pass of phases A through E and returns the number
// of teams still alive after phase B. When more than one team remains
// alive, the engine is advanced by n ticks and the tick counter grows by
// n; otherwise the engine is left frozen and the returned count lets the
// caller end the match.
func (m *Match) Tick(n int) (teamsAlive int, err error) {
	// Phase A: refuel & reset observations.
	for _, t := range m.teams {
		if t.Agent.Trapped() {
			continue
		}
		if m.fuelOn {
			if err := t.Agent.Refuel(); err != nil {
				return 0, fmt.Errorf("match: refuel: %w", err)
			}
		}
		t.Agent.ClearWorldState()
	}

	// Phase B: observe & broadcast.
	teamAlive := make([]bool, len(m.teams))
	teamScore := make([]int32, len(m.teams))
	type observed struct {
		id      uint32
		alive   bool
		ship    model.Pose
		shotP   model.Pose
		lifetime int32
		score   int32
	}
	var obs []observed
	for ti, t := range m.teams {
		for _, id := range t.IDs {
			alive, err := m.engine.IsAlive(id)
			if err != nil {
				return 0, fmt.Errorf("match: is_alive: %w", err)
			}
			ship, err := m.engine.ShipPose(id)
			if err != nil {
				return 0, fmt.Errorf("match: ship_pose: %w", err)
			}
			shotP, lifetime, err := m.engine.ShotPose(id)
			if err != nil {
				return 0, fmt.Errorf("match: shot_pose: %w", err)
			}
			score, err := m.engine.Score(id)
			if err != nil {
				return 0, fmt.Errorf("match: score: %w", err)
			}

			key := idKey(id)
			sl := m.logs[ti].Ships[key]
			sl.X = append(sl.X, round4(ship.X))
			sl.Y = append(sl.Y, round4(ship.Y))
			sl.Heading = append(sl.Heading, round1(ship.Heading))
			sl.Alive = append(sl.Alive, alive)

			shl := m.logs[ti].Shots[key]
			shl.X = append(shl.X, round4(shotP.X))
			shl.Y = append(shl.Y, round4(shotP.Y))
			shl.Lifetime = append(shl.Lifetime, lifetime)

			teamAlive[ti] = teamAlive[ti] || alive
			teamScore[ti] += score

			obs = append(obs, observed{id, alive, ship, shotP, lifetime, score})
		}
	}
	for ti := range m.teams {
		m.logs[ti].Scores = append(m.logs[ti].Scores, teamScore[ti])
	}
	for _, t := range m.teams {
		if t.Agent.Trapped() {
			continue
		}
		for _, o := range obs {
			t.Agent.UpdateShip(o.id, o.alive, o.ship)
			t.Agent.UpdateShot(o.id, o.lifetime, o.shotP)
			t.Agent.UpdateScore(o.id, o.score)
		}
	}

	// Phase C: actions.
	for ti, t := range m.teams {
		for _, id := range t.IDs {
			var action int32
			if !t.Agent.Trapped() {
				if a := t.Agent.MakeAction(id, m.tick); a != nil {
					action = *a
				}
			}
			key := idKey(id)
			m.logs[ti].Actions[key] = append(m.logs[ti].Actions[key], action)
			if err := m.engine.SetAction(id, action); err != nil {
				return 0, fmt.Errorf("match: set_action: %w", err)
			}
		}
	}

	// Phase D: log fuel.
	for ti, t := range m.teams {
		m.logs[ti].Fuel = append(m.logs[ti].Fuel, t.Agent.FuelLevel())
	}

	// Phase E: advance or terminate.
	teamsAlive = 0
	for _, a := range teamAlive {
		if a {
			teamsAlive++
		}
	}
	if teamsAlive > 1 {
		if err := m.engine.Tick(n); err != nil {
			return 0, fmt.Errorf("match: engine tick: %w", err)
		}
		m.tick += n
	}
	return teamsAlive, nil
}

// CurrentTick returns the engine-advanced tick counter.
func (m *Match) CurrentTick() int { return m.tick }

// Log returns the history accumulated so far, ready for JSON serialization.
func (m *Match) Log() *Log {
	return &Log{
		Ticks:         m.tick,
		ShipHitRadius: round3(m.engine.Config().ShipHitRadius),
		History:       m.logs,
	}
}
