// Package model holds the value types shared between the engine and agent
// ABIs: Config and Pose. Both are transmitted across the guest boundary as
// packed little-endian records (see internal/sandbox) and never mutated in
// place once constructed.
package model

// Config is the immutable, match-wide configuration shared by the engine and
// every agent. It is either read back from the engine's defaults or pushed
// into the engine before context creation — see internal/engine.
type Config struct {
	ShipMaxTurnRate float32
	ShipMaxVelocity float32
	ShipHitRadius   float32
	ShotVelocity    float32
	ShotLifetime    int32
}

// ConfigPackFormat is the packed-record layout for Config: four f32 fields
// followed by one i32 field, little-endian.
const ConfigPackFormat = "ffffi"

// Fields returns the Config's fields in the fixed positional order used both
// by the packed wire record and by the agent ABI's set_config_parameter.
// The last value is shot_lifetime, an integer semantically, widened to
// float32 here for set_config_parameter; the packed record carries it in
// its i32 slot instead.
func (c Config) Fields() [5]float32 {
	return [5]float32{
		c.ShipMaxTurnRate,
		c.ShipMaxVelocity,
		c.ShipHitRadius,
		c.ShotVelocity,
		float32(c.ShotLifetime),
	}
}

// Pose is a ship or shot position on the toroidal arena. X and Y are
// normalized to [0,1); Heading is in degrees.
type Pose struct {
	X       float32
	Y       float32
	Heading float32
}

// PosePackFormat is the packed-record layout for Pose: three f32 fields,
// little-endian.
const PosePackFormat = "fff"
