// Package agent wraps a single agent's sandbox: construction with the
// match Config, the fuel-guarded per-tick ABI calls, and the sticky
// trap-latching that keeps one misbehaving agent from taking down the
// match.
package agent

import (
	"github.com/joergh/scubywasm/internal/model"
	"github.com/joergh/scubywasm/internal/sandbox"
)

// requiredExports are validated right after instantiation, before
// init_agent is ever called.
var requiredExports = []string{
	"init_agent",
	"set_config_parameter",
	"clear_world_state",
	"update_ship",
	"update_shot",
	"update_score",
	"make_action",
}

// DefaultFuelMultiplier is the factor applied to an agent's per-tick fuel
// budget to compute its one-shot construction grace, absent an explicit
// override.
const DefaultFuelMultiplier = 100

// Binding is a typed, trap-latching facade over one agent WASM instance.
// Unlike engine.Binding, a trap here never propagates: Binding swallows it,
// sets Trapped, and every later call becomes a no-op returning the zero
// value. Instantiation failure is the one exception and remains fatal —
// it surfaces from New, not from a Binding method.
type Binding struct {
	sb      *sandbox.Sandbox
	ctx     uint32
	fuelPer uint64
}

// New instantiates the agent module with a one-shot construction fuel grace
// of fuelMultiplier*fuelLimit (when fuel metering is enabled), calls
// init_agent(nTotal, multiplicity, seed), and pushes cfg's five fields via
// set_config_parameter in fixed order. A trap anywhere in that sequence is
// caught and latched rather than propagated — config injection is guarded
// the same way, though module instantiation itself is not. fuelLimit is
// the steady-state per-tick grant applied by later Refuel calls.
func New(wasmBytes []byte, cfg model.Config, nTotal, multiplicity, seed uint32, fuelLimit uint64, fuelEnabled bool, fuelMultiplier uint64, memoryLimitBytes int64, logSink sandbox.LogSink) (*Binding, error) {
	if fuelMultiplier == 0 {
		fuelMultiplier = DefaultFuelMultiplier
	}
	sb, err := sandbox.Instantiate(wasmBytes, sandbox.Options{
		FuelEnabled:      fuelEnabled,
		InitialFuel:      fuelMultiplier * fuelLimit,
		MemoryLimitBytes: memoryLimitBytes,
		LogSink:          logSink,
	})
	if err != nil {
		return nil, err
	}
	if err := sb.RequireExports(requiredExports...); err != nil {
		return nil, err
	}

	b := &Binding{sb: sb, fuelPer: fuelLimit}

	ctxRes, err := sb.Call("init_agent", int32(nTotal), int32(multiplicity), int32(seed))
	if err != nil {
		return b, nil // latched by Call; construction still succeeds
	}
	ctx, ok := ctxRes.(int32)
	if !ok {
		return b, nil
	}
	b.ctx = uint32(ctx)

	fields := cfg.Fields()
	for i, v := range fields {
		if _, err := sb.Call("set_config_parameter", int32(b.ctx), int32(i), v); err != nil {
			return b, nil
		}
	}
	return b, nil
}

// Refuel resets the agent's remaining fuel to its per-tick grant. A no-op on
// an already-trapped or non-metered agent.
func (b *Binding) Refuel() error {
	if b.sb.Trapped() || !b.sb.FuelEnabled() {
		return nil
	}
	return b.sb.SetFuel(b.fuelPer)
}

// FuelLevel returns the agent's remaining fuel, or nil if fuel metering is
// off. A trapped agent still reports its frozen fuel reading — the store's
// counter simply stopped moving at the trap.
func (b *Binding) FuelLevel() *uint64 {
	if !b.sb.FuelEnabled() {
		return nil
	}
	n, err := b.sb.Fuel()
	if err != nil {
		return nil
	}
	return &n
}

// Trapped reports whether this agent has permanently latched.
func (b *Binding) Trapped() bool { return b.sb.Trapped() }

// ClearWorldState invokes the per-tick world reset export.
func (b *Binding) ClearWorldState() {
	_, _ = b.sb.Call("clear_world_state", int32(b.ctx))
}

// UpdateShip reports otherAgentID's ship pose into this agent's observed
// world state.
func (b *Binding) UpdateShip(otherAgentID uint32, alive bool, pose model.Pose) {
	aliveFlag := int32(0)
	if alive {
		aliveFlag = 1
	}
	_, _ = b.sb.Call("update_ship", int32(b.ctx), int32(otherAgentID), aliveFlag, pose.X, pose.Y, pose.Heading)
}

// UpdateShot reports otherAgentID's shot pose and remaining lifetime.
func (b *Binding) UpdateShot(otherAgentID uint32, lifetime int32, pose model.Pose) {
	_, _ = b.sb.Call("update_shot", int32(b.ctx), int32(otherAgentID), lifetime, pose.X, pose.Y, pose.Heading)
}

// UpdateScore reports otherAgentID's current score.
func (b *Binding) UpdateScore(otherAgentID uint32, score int32) {
	_, _ = b.sb.Call("update_score", int32(b.ctx), int32(otherAgentID), score)
}

// MakeAction asks the agent for its next action at the given tick. It
// returns nil if the agent is trapped (either already, or newly, by this
// very call) — the match runtime substitutes action 0 for a nil result.
func (b *Binding) MakeAction(agentID uint32, tick int) *int32 {
	res, err := b.sb.Call("make_action", int32(b.ctx), int32(agentID), int32(tick))
	if err != nil {
		return nil
	}
	action, ok := res.(int32)
	if !ok {
		return nil
	}
	return &action
}
