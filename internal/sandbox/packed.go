package sandbox

import (
	"encoding/binary"
	"fmt"
	"math"
)

// packed record formats used by this system. Each character is one 4-byte
// little-endian field: 'f' for float32, 'i' for int32. There is no length
// prefix or alignment padding — callers must size guest buffers themselves.
const (
	// FormatConfig is the engine Config record: ship_max_turn_rate,
	// ship_max_velocity, ship_hit_radius, shot_velocity, shot_lifetime.
	FormatConfig = "ffffi"
	// FormatPose is the Pose record: x, y, heading.
	FormatPose = "fff"
)

// FormatSize returns the byte size of a packed record format.
func FormatSize(format string) (int, error) {
	if err := validateFormat(format); err != nil {
		return 0, err
	}
	return len(format) * 4, nil
}

func validateFormat(format string) error {
	if format == "" {
		return fmt.Errorf("sandbox: empty packed-record format")
	}
	for _, c := range format {
		if c != 'f' && c != 'i' {
			return fmt.Errorf("sandbox: unsupported packed-record field %q (only 'f' and 'i' are supported)", c)
		}
	}
	return nil
}

// ReadPacked unpacks a little-endian record out of mem at ptr according to
// format, returning one value per field as either float32 or int32.
func ReadPacked(mem []byte, format string, ptr uint32) ([]any, error) {
	if err := validateFormat(format); err != nil {
		return nil, err
	}
	size := len(format) * 4
	if uint64(ptr)+uint64(size) > uint64(len(mem)) {
		return nil, fmt.Errorf("sandbox: read_packed out of range (ptr=%d, size=%d, mem=%d)", ptr, size, len(mem))
	}
	out := make([]any, len(format))
	for i, f := range format {
		off := int(ptr) + i*4
		bits := binary.LittleEndian.Uint32(mem[off : off+4])
		switch f {
		case 'f':
			out[i] = math.Float32frombits(bits)
		case 'i':
			out[i] = int32(bits)
		}
	}
	return out, nil
}

// WritePacked packs values into mem at ptr according to format, little-endian.
// Float fields accept float32 or float64; integer fields accept int32, int,
// or int64 (it is the caller's responsibility to keep values in i32 range).
func WritePacked(mem []byte, format string, ptr uint32, values ...any) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if len(values) != len(format) {
		return fmt.Errorf("sandbox: write_packed expected %d values for format %q, got %d", len(format), format, len(values))
	}
	size := len(format) * 4
	if uint64(ptr)+uint64(size) > uint64(len(mem)) {
		return fmt.Errorf("sandbox: write_packed out of range (ptr=%d, size=%d, mem=%d)", ptr, size, len(mem))
	}
	for i, f := range format {
		off := int(ptr) + i*4
		var bits uint32
		switch f {
		case 'f':
			v, err := toFloat32(values[i])
			if err != nil {
				return fmt.Errorf("sandbox: write_packed field %d: %w", i, err)
			}
			bits = math.Float32bits(v)
		case 'i':
			v, err := toInt32(values[i])
			if err != nil {
				return fmt.Errorf("sandbox: write_packed field %d: %w", i, err)
			}
			bits = uint32(v)
		}
		binary.LittleEndian.PutUint32(mem[off:off+4], bits)
	}
	return nil
}

func toFloat32(v any) (float32, error) {
	switch n := v.(type) {
	case float32:
		return n, nil
	case float64:
		return float32(n), nil
	case int32:
		return float32(n), nil
	case int:
		return float32(n), nil
	default:
		return 0, fmt.Errorf("unsupported value type %T for float32 field", v)
	}
}

func toInt32(v any) (int32, error) {
	switch n := v.(type) {
	case int32:
		return n, nil
	case int:
		return int32(n), nil
	case int64:
		return int32(n), nil
	case float32:
		return int32(n), nil
	case float64:
		return int32(n), nil
	default:
		return 0, fmt.Errorf("unsupported value type %T for int32 field", v)
	}
}
