package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAgent(t *testing.T, home, user, name, fname string) {
	t.Helper()
	dir := filepath.Join(home, user, "agents", name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, fname), []byte("wasm"), 0o644))
}

func TestGatherAgentsFindsNewestPerName(t *testing.T) {
	home := t.TempDir()
	writeAgent(t, home, "alice", "bot", "v1.wasm")
	older := filepath.Join(home, "alice", "agents", "bot", "v1.wasm")
	require.NoError(t, os.Chtimes(older, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))
	writeAgent(t, home, "alice", "bot", "v2.wasm")

	agents, err := GatherAgents(home)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "v2.wasm", filepath.Base(agents[0].Path))
}

func TestGatherAgentsSortedByName(t *testing.T) {
	home := t.TempDir()
	writeAgent(t, home, "alice", "zeta", "a.wasm")
	writeAgent(t, home, "bob", "alpha", "a.wasm")

	agents, err := GatherAgents(home)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "alpha", agents[0].Name)
	assert.Equal(t, "zeta", agents[1].Name)
}

func TestNeedsRestartOnNameSetChange(t *testing.T) {
	prev := []DiscoveredAgent{{Name: "a", MTime: time.Unix(1, 0), Size: 10}}
	next := []DiscoveredAgent{{Name: "a", MTime: time.Unix(1, 0), Size: 10}, {Name: "b", MTime: time.Unix(1, 0), Size: 10}}
	assert.True(t, NeedsRestart(prev, next))
}

func TestNeedsRestartOnMTimeChange(t *testing.T) {
	prev := []DiscoveredAgent{{Name: "a", MTime: time.Unix(1, 0), Size: 10}}
	next := []DiscoveredAgent{{Name: "a", MTime: time.Unix(2, 0), Size: 10}}
	assert.True(t, NeedsRestart(prev, next))
}

func TestNeedsRestartFalseWhenUnchanged(t *testing.T) {
	prev := []DiscoveredAgent{{Name: "a", MTime: time.Unix(1, 0), Size: 10}}
	next := []DiscoveredAgent{{Name: "a", MTime: time.Unix(1, 0), Size: 10}}
	assert.False(t, NeedsRestart(prev, next))
}
