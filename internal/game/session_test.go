package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRound_OnlyFromWaiting(t *testing.T) {
	s := NewSession("test-room", DefaultRules(), testBase)
	s.AddPlayer("p1", "alice", testBase)

	started, err := s.StartRound(testBase)
	require.NoError(t, err)
	assert.Equal(t, 1, started.Round)
	assert.Equal(t, PhaseRound, s.Phase())

	// Starting again mid-round is a conflict no-op: nothing resets.
	ing, err := s.PrepareIngredient("p1", IngredientHam, testBase)
	require.NoError(t, err)
	_, err = s.StartRound(testBase.Add(time.Minute))
	assert.ErrorIs(t, err, ErrWrongPhase)
	assert.Len(t, s.Snapshot().PreparedIngredients, 1)
	assert.Equal(t, ing.ID, s.Snapshot().PreparedIngredients[0].ID)
}

func TestStartRound_ResetsPerRoundState(t *testing.T) {
	s := roundSession(t)
	_, err := s.PrepareIngredient("p1", IngredientHam, testBase)
	require.NoError(t, err)
	buildBaconPizza(t, s, testBase)

	// Finish the whole three-round cycle to get back to waiting.
	for i := 0; i < 3; i++ {
		_, ok := s.EndRound(testBase, s.Gen())
		require.True(t, ok)
		_, ok = s.AdvanceAfterDebrief(testBase, s.Gen())
		require.True(t, ok)
	}
	require.Equal(t, PhaseWaiting, s.Phase())

	started, err := s.StartRound(testBase)
	require.NoError(t, err)
	assert.Equal(t, 1, started.Round)
	snap := s.Snapshot()
	assert.Empty(t, snap.PreparedIngredients)
	assert.Empty(t, snap.BuiltPizzas)
	assert.Empty(t, snap.WastedPizzas)
	assert.Empty(t, snap.CustomerOrders)
}

func TestEndRound_StaleGenerationIgnored(t *testing.T) {
	s := NewSession("test-room", DefaultRules(), testBase)
	s.AddPlayer("p1", "alice", testBase)
	started, err := s.StartRound(testBase)
	require.NoError(t, err)

	// First firing wins.
	ended, ok := s.EndRound(testBase.Add(time.Minute), started.Gen)
	require.True(t, ok)
	assert.Equal(t, PhaseDebrief, s.Phase())

	// A duplicate timer with the old generation must not re-trigger.
	_, ok = s.EndRound(testBase.Add(2*time.Minute), started.Gen)
	assert.False(t, ok)
	assert.Equal(t, PhaseDebrief, s.Phase())

	// Nor may a stale debrief timer fire twice.
	outcome, ok := s.AdvanceAfterDebrief(testBase.Add(3*time.Minute), ended.Gen)
	require.True(t, ok)
	require.NotNil(t, outcome.NextRound)
	_, ok = s.AdvanceAfterDebrief(testBase.Add(4*time.Minute), ended.Gen)
	assert.False(t, ok)
}

func TestSession_FullGameCycle(t *testing.T) {
	s := NewSession("test-room", DefaultRules(), testBase)
	s.AddPlayer("p1", "alice", testBase)

	started, err := s.StartRound(testBase)
	require.NoError(t, err)
	require.Equal(t, 1, started.Round)
	assert.False(t, started.HasOrders)

	ended, ok := s.EndRound(testBase, s.Gen())
	require.True(t, ok)
	assert.False(t, ended.Final)

	outcome, ok := s.AdvanceAfterDebrief(testBase, s.Gen())
	require.True(t, ok)
	require.Equal(t, 2, outcome.NextRound.Round)

	_, ok = s.EndRound(testBase, s.Gen())
	require.True(t, ok)
	outcome, ok = s.AdvanceAfterDebrief(testBase, s.Gen())
	require.True(t, ok)
	require.Equal(t, 3, outcome.NextRound.Round)
	assert.True(t, outcome.NextRound.HasOrders)
	assert.Equal(t, DefaultRules().OrderCount, s.PendingOrderCount())

	ended, ok = s.EndRound(testBase, s.Gen())
	require.True(t, ok)
	assert.True(t, ended.Final)
	assert.Equal(t, OrdersRound, ended.Result.Round)

	// Final debrief returns the room to waiting at round 1.
	outcome, ok = s.AdvanceAfterDebrief(testBase, s.Gen())
	require.True(t, ok)
	assert.Nil(t, outcome.NextRound)
	snap := s.Snapshot()
	assert.Equal(t, PhaseWaiting, snap.CurrentPhase)
	assert.Equal(t, 1, snap.Round)
	assert.Empty(t, snap.CustomerOrders)
}

func TestEndRound_AggregatesSnapshot(t *testing.T) {
	s := roundSession(t)

	// 1 completed (cooked), 1 wasted (invalid), 1 unsold (built), 2 leftover.
	cooked := buildBaconPizza(t, s, testBase)
	_, err := s.MoveToOven("p1", cooked.ID, testBase)
	require.NoError(t, err)
	_, err = s.ToggleOven("p1", true, testBase)
	require.NoError(t, err)
	_, err = s.ToggleOven("p1", false, testBase.Add(35*time.Second))
	require.NoError(t, err)

	res, err := s.BuildPizza("p1", []IngredientType{IngredientHam}, "", testBase)
	require.NoError(t, err)
	require.True(t, res.Wasted)

	buildBaconPizza(t, s, testBase)
	_, err = s.PrepareIngredient("p1", IngredientBase, testBase)
	require.NoError(t, err)
	_, err = s.PrepareIngredient("p1", IngredientSauce, testBase)
	require.NoError(t, err)

	ended, ok := s.EndRound(testBase.Add(time.Minute), s.Gen())
	require.True(t, ok)
	assert.Equal(t, 1, ended.Result.CompletedPizzas)
	assert.Equal(t, 1, ended.Result.WastedPizzas)
	assert.Equal(t, 1, ended.Result.UnsoldPizzas)
	assert.Equal(t, 2, ended.Result.IngredientsLeft)
	assert.Equal(t, 10-10-5-2, ended.Result.Score)
}

func TestTimeRemaining_PureRead(t *testing.T) {
	s := NewSession("test-room", DefaultRules(), testBase)
	s.AddPlayer("p1", "alice", testBase)

	info := s.TimeRemaining(testBase)
	assert.Equal(t, PhaseWaiting, info.Phase)
	assert.Zero(t, info.RoundTimeRemaining)

	_, err := s.StartRound(testBase)
	require.NoError(t, err)

	info = s.TimeRemaining(testBase.Add(20 * time.Second))
	assert.Equal(t, PhaseRound, info.Phase)
	assert.Equal(t, 400, info.RoundTimeRemaining)

	// Clamped to zero past the deadline.
	info = s.TimeRemaining(testBase.Add(time.Hour))
	assert.Zero(t, info.RoundTimeRemaining)
	assert.Equal(t, PhaseRound, s.Phase())

	// Oven elapsed time rides along while the oven is on.
	_, err = s.ToggleOven("p1", true, testBase)
	require.NoError(t, err)
	info = s.TimeRemaining(testBase.Add(12 * time.Second))
	assert.Equal(t, 12, info.OvenTime)
}

func TestPlayers_LifecycleAndIdle(t *testing.T) {
	s := NewSession("test-room", DefaultRules(), testBase)
	s.AddPlayer("p1", "alice", testBase)
	s.AddPlayer("p2", "bob", testBase.Add(10*time.Minute))

	idle := s.IdlePlayers(testBase.Add(5 * time.Minute))
	assert.Equal(t, []string{"p1"}, idle)

	removed, empty := s.RemovePlayer("p1", testBase.Add(11*time.Minute))
	assert.True(t, removed)
	assert.False(t, empty)

	removed, empty = s.RemovePlayer("p1", testBase.Add(11*time.Minute))
	assert.False(t, removed)

	_, empty = s.RemovePlayer("p2", testBase.Add(12*time.Minute))
	assert.True(t, empty)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := roundSession(t)
	pizza := buildBaconPizza(t, s, testBase)

	snap := s.Snapshot()
	snap.BuiltPizzas[0].Status = StatusBurnt
	snap.Players["p1"] = PlayerState{Name: "mallory"}

	fresh := s.Snapshot()
	assert.Empty(t, fresh.BuiltPizzas[0].Status)
	assert.Equal(t, "alice", fresh.Players["p1"].Name)
	assert.Equal(t, pizza.ID, fresh.BuiltPizzas[0].ID)
}
