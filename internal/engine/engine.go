// Package engine wraps one sandbox and manages a single engine context
// handle, exposing the engine's exported ABI as a typed facade instead of
// dynamic export lookup.
package engine

import (
	"fmt"

	"github.com/joergh/scubywasm/internal/model"
	"github.com/joergh/scubywasm/internal/sandbox"
)

// requiredExports are validated to exist right after instantiation; a
// missing one fails construction instead of surfacing lazily.
var requiredExports = []string{
	"get_config_buffer",
	"get_pose_buffer",
	"set_default_config",
	"create_context",
	"add_agent",
	"set_action",
	"tick",
	"get_ship_pose",
	"get_shot_pose",
	"is_alive",
	"get_score",
}

// Binding is a typed facade over one engine WASM instance. A trap raised by
// any engine export is fatal to the owning match — Binding never latches
// the way agent.Binding does.
type Binding struct {
	sb      *sandbox.Sandbox
	ctx     uint32
	cfg     model.Config
	cfgPtr  uint32
	posePtr uint32
}

// New instantiates the engine module and creates its match context. If cfg
// is nil, the engine's own defaults are read back and become the
// authoritative Config for the match; otherwise cfg is pushed into the
// engine before create_context.
func New(wasmBytes []byte, cfg *model.Config, logSink sandbox.LogSink) (*Binding, error) {
	sb, err := sandbox.Instantiate(wasmBytes, sandbox.Options{LogSink: logSink})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if err := sb.RequireExports(requiredExports...); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	b := &Binding{sb: sb}

	cfgPtrRes, err := sb.Call("get_config_buffer")
	if err != nil {
		return nil, fmt.Errorf("engine: get_config_buffer: %w", err)
	}
	b.cfgPtr = toU32(cfgPtrRes)

	poseRes, err := sb.Call("get_pose_buffer")
	if err != nil {
		return nil, fmt.Errorf("engine: get_pose_buffer: %w", err)
	}
	b.posePtr = toU32(poseRes)

	if cfg == nil {
		if _, err := sb.Call("set_default_config", int32(b.cfgPtr)); err != nil {
			return nil, fmt.Errorf("engine: set_default_config: %w", err)
		}
		values, err := sb.ReadPacked(sandbox.FormatConfig, b.cfgPtr)
		if err != nil {
			return nil, fmt.Errorf("engine: read default config: %w", err)
		}
		b.cfg = configFromPacked(values)
	} else {
		b.cfg = *cfg
		fields := cfg.Fields()
		if err := sb.WritePacked(sandbox.FormatConfig, b.cfgPtr,
			fields[0], fields[1], fields[2], fields[3], cfg.ShotLifetime); err != nil {
			return nil, fmt.Errorf("engine: write config: %w", err)
		}
	}

	ctxRes, err := sb.Call("create_context", int32(b.cfgPtr))
	if err != nil {
		return nil, fmt.Errorf("engine: create_context: %w", err)
	}
	b.ctx = toU32(ctxRes)

	return b, nil
}

func configFromPacked(values []any) model.Config {
	return model.Config{
		ShipMaxTurnRate: values[0].(float32),
		ShipMaxVelocity: values[1].(float32),
		ShipHitRadius:   values[2].(float32),
		ShotVelocity:    values[3].(float32),
		ShotLifetime:    values[4].(int32),
	}
}

// Config returns the authoritative, match-wide Config snapshot.
func (b *Binding) Config() model.Config { return b.cfg }

// AddAgent registers a ship at pose and returns its engine-assigned id.
func (b *Binding) AddAgent(pose model.Pose) (uint32, error) {
	if err := b.sb.WritePacked(sandbox.FormatPose, b.posePtr, pose.X, pose.Y, pose.Heading); err != nil {
		return 0, fmt.Errorf("engine: write pose: %w", err)
	}
	res, err := b.sb.Call("add_agent", int32(b.ctx), int32(b.posePtr))
	if err != nil {
		return 0, fmt.Errorf("engine: add_agent: %w", err)
	}
	return toU32(res), nil
}

// SetAction queues agentID's next action.
func (b *Binding) SetAction(agentID uint32, action int32) error {
	_, err := b.sb.Call("set_action", int32(b.ctx), int32(agentID), action)
	if err != nil {
		return fmt.Errorf("engine: set_action: %w", err)
	}
	return nil
}

// Tick advances the simulation by n ticks.
func (b *Binding) Tick(n int) error {
	_, err := b.sb.Call("tick", int32(b.ctx), int32(n))
	if err != nil {
		return fmt.Errorf("engine: tick: %w", err)
	}
	return nil
}

// ShipPose returns agentID's current ship pose.
func (b *Binding) ShipPose(agentID uint32) (model.Pose, error) {
	if _, err := b.sb.Call("get_ship_pose", int32(b.ctx), int32(agentID), int32(b.posePtr)); err != nil {
		return model.Pose{}, fmt.Errorf("engine: get_ship_pose: %w", err)
	}
	values, err := b.sb.ReadPacked(sandbox.FormatPose, b.posePtr)
	if err != nil {
		return model.Pose{}, fmt.Errorf("engine: read ship pose: %w", err)
	}
	return poseFromPacked(values), nil
}

// ShotPose returns agentID's current shot pose and remaining lifetime.
func (b *Binding) ShotPose(agentID uint32) (model.Pose, int32, error) {
	res, err := b.sb.Call("get_shot_pose", int32(b.ctx), int32(agentID), int32(b.posePtr))
	if err != nil {
		return model.Pose{}, 0, fmt.Errorf("engine: get_shot_pose: %w", err)
	}
	values, err := b.sb.ReadPacked(sandbox.FormatPose, b.posePtr)
	if err != nil {
		return model.Pose{}, 0, fmt.Errorf("engine: read shot pose: %w", err)
	}
	return poseFromPacked(values), toI32(res), nil
}

// IsAlive reports agentID's ship liveness.
func (b *Binding) IsAlive(agentID uint32) (bool, error) {
	res, err := b.sb.Call("is_alive", int32(b.ctx), int32(agentID))
	if err != nil {
		return false, fmt.Errorf("engine: is_alive: %w", err)
	}
	return toI32(res) != 0, nil
}

// Score returns agentID's current score.
func (b *Binding) Score(agentID uint32) (int32, error) {
	res, err := b.sb.Call("get_score", int32(b.ctx), int32(agentID))
	if err != nil {
		return 0, fmt.Errorf("engine: get_score: %w", err)
	}
	return toI32(res), nil
}

func poseFromPacked(values []any) model.Pose {
	return model.Pose{
		X:       values[0].(float32),
		Y:       values[1].(float32),
		Heading: values[2].(float32),
	}
}

func toU32(v any) uint32 { return uint32(toI64(v)) }
func toI32(v any) int32  { return int32(toI64(v)) }

func toI64(v any) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
