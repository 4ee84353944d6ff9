package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileAccepts(t *testing.T) {
	data := []byte(`[{"name":"duel","multiplicity":2,"max_ticks":1000,"fuel_limit":100000,"max_rounds":50}]`)
	scenarios, err := ParseFile(data)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "duel", scenarios[0].Name)
	assert.Equal(t, 2, scenarios[0].Multiplicity)
	assert.Equal(t, 50, scenarios[0].MaxRounds)
}

func TestParseFileRejectsMissingMaxRounds(t *testing.T) {
	data := []byte(`[{"name":"duel","multiplicity":2,"max_ticks":1000,"fuel_limit":100000}]`)
	_, err := ParseFile(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_rounds")
}

func TestParseFileIgnoresUnknownKeys(t *testing.T) {
	data := []byte(`[{"name":"duel","multiplicity":2,"max_ticks":1000,"fuel_limit":100000,"max_rounds":50,"notes":"extra"}]`)
	scenarios, err := ParseFile(data)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
}

func TestParseFileRejectsBadMultiplicity(t *testing.T) {
	data := []byte(`[{"name":"duel","multiplicity":0,"max_ticks":1000,"fuel_limit":100000,"max_rounds":50}]`)
	_, err := ParseFile(data)
	require.Error(t, err)
}

func TestParseFileRejectsNonIntegerField(t *testing.T) {
	data := []byte(`[{"name":"duel","multiplicity":2.5,"max_ticks":1000,"fuel_limit":100000,"max_rounds":50}]`)
	_, err := ParseFile(data)
	require.Error(t, err)
}
