package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadConfigRoundTrips(t *testing.T) {
	mem := make([]byte, 64)
	err := WritePacked(mem, FormatConfig, 8, float32(6.0), float32(1.5), float32(0.02), float32(3.0), int32(200))
	require.NoError(t, err)

	values, err := ReadPacked(mem, FormatConfig, 8)
	require.NoError(t, err)
	require.Len(t, values, 5)
	assert.Equal(t, float32(6.0), values[0])
	assert.Equal(t, float32(1.5), values[1])
	assert.Equal(t, float32(0.02), values[2])
	assert.Equal(t, float32(3.0), values[3])
	assert.Equal(t, int32(200), values[4])
}

func TestWriteThenReadPoseRoundTrips(t *testing.T) {
	mem := make([]byte, 32)
	require.NoError(t, WritePacked(mem, FormatPose, 0, float32(0.25), float32(0.75), float32(180.0)))

	values, err := ReadPacked(mem, FormatPose, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{float32(0.25), float32(0.75), float32(180.0)}, values)
}

func TestReadPackedOutOfRange(t *testing.T) {
	mem := make([]byte, 4)
	_, err := ReadPacked(mem, FormatPose, 0)
	assert.Error(t, err)
}

func TestWritePackedOutOfRange(t *testing.T) {
	mem := make([]byte, 4)
	err := WritePacked(mem, FormatPose, 0, float32(1), float32(2), float32(3))
	assert.Error(t, err)
}

func TestWritePackedWrongArity(t *testing.T) {
	mem := make([]byte, 32)
	err := WritePacked(mem, FormatPose, 0, float32(1), float32(2))
	assert.Error(t, err)
}

func TestValidateFormatRejectsUnknownField(t *testing.T) {
	_, err := FormatSize("ffx")
	assert.Error(t, err)
}

func TestFormatSize(t *testing.T) {
	size, err := FormatSize(FormatConfig)
	require.NoError(t, err)
	assert.Equal(t, 20, size)

	size, err = FormatSize(FormatPose)
	require.NoError(t, err)
	assert.Equal(t, 12, size)
}
