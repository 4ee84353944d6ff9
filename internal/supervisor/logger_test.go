package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joergh/scubywasm/internal/match"
)

func TestNewLoggerStartsAtZeroInEmptyDir(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, l.next)
}

func TestLoggerSavesSequentially(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		path, err := l.Save(&match.MatchLog{})
		require.NoError(t, err)
		assert.Contains(t, path, "scubywasm-log_")
	}
	assert.Equal(t, 3, l.next)
}

func TestNewLoggerResumesAfterExistingFiles(t *testing.T) {
	dir := t.TempDir()
	first, err := NewLogger(dir)
	require.NoError(t, err)
	_, err = first.Save(&match.MatchLog{})
	require.NoError(t, err)
	_, err = first.Save(&match.MatchLog{})
	require.NoError(t, err)

	restarted, err := NewLogger(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, restarted.next)
}

func TestNewLoggerSkipsGapsToLargestSuffix(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)
	l.next = 0
	_, err = l.Save(&match.MatchLog{})
	require.NoError(t, err)
	l.next = 7
	_, err = l.Save(&match.MatchLog{})
	require.NoError(t, err)

	restarted, err := NewLogger(dir)
	require.NoError(t, err)
	assert.Equal(t, 8, restarted.next)
}
