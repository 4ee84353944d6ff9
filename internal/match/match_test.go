package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joergh/scubywasm/internal/model"
)

// fakeEngine is a pure-Go EngineAPI double: every ship starts alive at a
// fixed pose and stays alive until killed explicitly.
type fakeEngine struct {
	cfg      model.Config
	poses    map[uint32]model.Pose
	alive    map[uint32]bool
	scores   map[uint32]int32
	ticks    int
	tickCall int
}

func newFakeEngine(ids []uint32) *fakeEngine {
	fe := &fakeEngine{
		cfg:    model.Config{ShipHitRadius: 0.0199},
		poses:  make(map[uint32]model.Pose),
		alive:  make(map[uint32]bool),
		scores: make(map[uint32]int32),
	}
	for _, id := range ids {
		fe.poses[id] = model.Pose{X: 0.5, Y: 0.5, Heading: 90}
		fe.alive[id] = true
	}
	return fe
}

func (f *fakeEngine) Config() model.Config { return f.cfg }
func (f *fakeEngine) AddAgent(pose model.Pose) (uint32, error) { return 0, nil }
func (f *fakeEngine) SetAction(agentID uint32, action int32) error { return nil }
func (f *fakeEngine) Tick(n int) error { f.tickCall++; f.ticks += n; return nil }
func (f *fakeEngine) ShipPose(agentID uint32) (model.Pose, error) { return f.poses[agentID], nil }
func (f *fakeEngine) ShotPose(agentID uint32) (model.Pose, int32, error) {
	return model.Pose{}, 0, nil
}
func (f *fakeEngine) IsAlive(agentID uint32) (bool, error) { return f.alive[agentID], nil }
func (f *fakeEngine) Score(agentID uint32) (int32, error) { return f.scores[agentID], nil }

// fakeAgent is a pure-Go AgentAPI double always returning a fixed action,
// optionally latching trapped on demand.
type fakeAgent struct {
	action       int32
	trapped      bool
	fuel         uint64
	fuelOn       bool
	refuelCalls  int
	clearCalls   int
	makeCalls    int
}

func (a *fakeAgent) Refuel() error            { a.refuelCalls++; a.fuel = 1000; return nil }
func (a *fakeAgent) FuelLevel() *uint64 {
	if !a.fuelOn || a.trapped {
		return nil
	}
	f := a.fuel
	return &f
}
func (a *fakeAgent) Trapped() bool { return a.trapped }
func (a *fakeAgent) ClearWorldState() { a.clearCalls++ }
func (a *fakeAgent) UpdateShip(uint32, bool, model.Pose)  {}
func (a *fakeAgent) UpdateShot(uint32, int32, model.Pose) {}
func (a *fakeAgent) UpdateScore(uint32, int32)            {}
func (a *fakeAgent) MakeAction(agentID uint32, tick int) *int32 {
	a.makeCalls++
	if a.trapped {
		return nil
	}
	action := a.action
	return &action
}

func TestSingleTeamFirstTickFreezesEngine(t *testing.T) {
	eng := newFakeEngine([]uint32{0})
	ag := &fakeAgent{}
	m := New(eng, []Team{{Agent: ag, IDs: []uint32{0}}}, false)

	teamsAlive, err := m.Tick(1)
	require.NoError(t, err)
	assert.Equal(t, 1, teamsAlive)
	assert.Equal(t, 0, eng.tickCall, "engine.Tick must be skipped when teams_alive <= 1")
	assert.Equal(t, 0, m.CurrentTick())

	log := m.Log()
	assert.Equal(t, 0, log.Ticks)
	assert.Len(t, log.History[0].Ships["0"].X, 1)
	assert.Len(t, log.History[0].Actions["0"], 1)
}

func TestTwoTeamsBothAliveAdvancesEngine(t *testing.T) {
	eng := newFakeEngine([]uint32{0, 1})
	a0 := &fakeAgent{}
	a1 := &fakeAgent{}
	m := New(eng, []Team{{Agent: a0, IDs: []uint32{0}}, {Agent: a1, IDs: []uint32{1}}}, false)

	teamsAlive, err := m.Tick(3)
	require.NoError(t, err)
	assert.Equal(t, 2, teamsAlive)
	assert.Equal(t, 1, eng.tickCall)
	assert.Equal(t, 3, m.CurrentTick())
}

func TestArityInvariantHoldsAcrossTicks(t *testing.T) {
	eng := newFakeEngine([]uint32{0, 1})
	a0 := &fakeAgent{}
	a1 := &fakeAgent{}
	m := New(eng, []Team{{Agent: a0, IDs: []uint32{0}}, {Agent: a1, IDs: []uint32{1}}}, false)

	for i := 0; i < 5; i++ {
		_, err := m.Tick(1)
		require.NoError(t, err)
	}

	log := m.Log()
	for _, team := range log.History {
		for id, ships := range team.Ships {
			assert.Len(t, ships.X, 5)
			assert.Len(t, ships.Y, 5)
			assert.Len(t, ships.Heading, 5)
			assert.Len(t, ships.Alive, 5)
			assert.Len(t, team.Shots[id].X, 5)
			assert.Len(t, team.Actions[id], 5)
		}
		assert.Len(t, team.Scores, 5)
		assert.Len(t, team.Fuel, 5)
	}
}

func TestTrappedAgentActionsAreZeroAndNoGuestEntry(t *testing.T) {
	eng := newFakeEngine([]uint32{0, 1})
	a0 := &fakeAgent{action: 7, trapped: true}
	a1 := &fakeAgent{action: 3}
	m := New(eng, []Team{{Agent: a0, IDs: []uint32{0}}, {Agent: a1, IDs: []uint32{1}}}, false)

	_, err := m.Tick(1)
	require.NoError(t, err)

	log := m.Log()
	assert.Equal(t, []int32{0}, log.History[0].Actions["0"])
	assert.Equal(t, []int32{3}, log.History[1].Actions["1"])
	assert.Equal(t, 0, a0.makeCalls, "a trapped agent's MakeAction must never be re-entered")
	assert.Equal(t, 0, a0.clearCalls, "a trapped agent's ClearWorldState must never be re-entered")
}

func TestFuelLoggedNullWhenMeteringDisabled(t *testing.T) {
	eng := newFakeEngine([]uint32{0})
	ag := &fakeAgent{fuelOn: false}
	m := New(eng, []Team{{Agent: ag, IDs: []uint32{0}}}, false)

	_, err := m.Tick(1)
	require.NoError(t, err)

	log := m.Log()
	require.Len(t, log.History[0].Fuel, 1)
	assert.Nil(t, log.History[0].Fuel[0])
}

func TestFuelLoggedWhenMeteringEnabled(t *testing.T) {
	eng := newFakeEngine([]uint32{0})
	ag := &fakeAgent{fuelOn: true}
	m := New(eng, []Team{{Agent: ag, IDs: []uint32{0}}}, true)

	_, err := m.Tick(1)
	require.NoError(t, err)
	assert.Equal(t, 1, ag.refuelCalls)

	log := m.Log()
	require.Len(t, log.History[0].Fuel, 1)
	require.NotNil(t, log.History[0].Fuel[0])
	assert.Equal(t, uint64(1000), *log.History[0].Fuel[0])
}

func TestShipHitRadiusRoundedToThreeDecimals(t *testing.T) {
	eng := newFakeEngine([]uint32{0})
	ag := &fakeAgent{}
	m := New(eng, []Team{{Agent: ag, IDs: []uint32{0}}}, false)
	_, err := m.Tick(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.020, m.Log().ShipHitRadius, 1e-9)
}

func TestDeriveSeedsDeterministic(t *testing.T) {
	a := deriveSeeds(NewRNG(42), 4)
	b := deriveSeeds(NewRNG(42), 4)
	assert.Equal(t, a, b)
	assert.Len(t, a, 4)
}

func TestGeneratePosesDeterministicAndCorrectCount(t *testing.T) {
	a := generatePoses(NewRNG(7), 5)
	b := generatePoses(NewRNG(7), 5)
	assert.Equal(t, a, b)
	assert.Len(t, a, 5)
	for _, p := range a {
		assert.GreaterOrEqual(t, p.X, float32(0))
		assert.Less(t, p.X, float32(1))
		assert.GreaterOrEqual(t, p.Heading, float32(0))
		assert.LessOrEqual(t, p.Heading, float32(360))
	}
}

func TestSeedsThenPosesFullSequenceDeterministic(t *testing.T) {
	rngA := NewRNG(99)
	seedsA := deriveSeeds(rngA, 2)
	posesA := generatePoses(rngA, 2)

	rngB := NewRNG(99)
	seedsB := deriveSeeds(rngB, 2)
	posesB := generatePoses(rngB, 2)

	assert.Equal(t, seedsA, seedsB)
	assert.Equal(t, posesA, posesB)
}
