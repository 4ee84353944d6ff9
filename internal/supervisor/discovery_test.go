package supervisor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestSelectAgentsPicksLargestVersion(t *testing.T) {
	dir := t.TempDir()
	teamDir := filepath.Join(dir, "alpha")
	require.NoError(t, os.MkdirAll(teamDir, 0o755))
	touch(t, filepath.Join(teamDir, "agent-v3.wasm"))
	touch(t, filepath.Join(teamDir, "agent-v12.wasm"))
	touch(t, filepath.Join(teamDir, "agent-v9.wasm"))
	touch(t, filepath.Join(teamDir, "notes.txt"))

	teams, paths, err := SelectAgents(dir)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "alpha", teams[0])
	assert.Equal(t, filepath.Join(teamDir, "agent-v12.wasm"), paths[0])
}

func TestSelectAgentsSortedByTeamName(t *testing.T) {
	dir := t.TempDir()
	for _, team := range []string{"zeta", "alpha", "mu"} {
		teamDir := filepath.Join(dir, team)
		require.NoError(t, os.MkdirAll(teamDir, 0o755))
		touch(t, filepath.Join(teamDir, "agent-v1.wasm"))
	}

	teams, _, err := SelectAgents(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mu", "zeta"}, teams)
}

func TestSelectAgentsSkipsTeamWithNoMatch(t *testing.T) {
	dir := t.TempDir()
	emptyTeam := filepath.Join(dir, "empty")
	require.NoError(t, os.MkdirAll(emptyTeam, 0o755))
	touch(t, filepath.Join(emptyTeam, "readme.md"))

	teams, paths, err := SelectAgents(dir)
	require.NoError(t, err)
	assert.Empty(t, teams)
	assert.Empty(t, paths)
}
