package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanbanpizza/server/internal/events"
	"github.com/kanbanpizza/server/internal/game"
)

// recordingBroadcaster captures emitted events instead of writing to sockets.
type recordingBroadcaster struct {
	mu   sync.Mutex
	room []*events.Event
	conn map[string][]*events.Event
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{conn: make(map[string][]*events.Event)}
}

func (b *recordingBroadcaster) BroadcastToRoom(room string, ev *events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.room = append(b.room, ev)
}

func (b *recordingBroadcaster) SendToConn(connID string, ev *events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn[connID] = append(b.conn[connID], ev)
}

func (b *recordingBroadcaster) roomTypes() []events.Type {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Type, 0, len(b.room))
	for _, ev := range b.room {
		out = append(out, ev.Type)
	}
	return out
}

func (b *recordingBroadcaster) countRoom(t events.Type) int {
	n := 0
	for _, typ := range b.roomTypes() {
		if typ == t {
			n++
		}
	}
	return n
}

func (b *recordingBroadcaster) connTypes(connID string) []events.Type {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Type, 0, len(b.conn[connID]))
	for _, ev := range b.conn[connID] {
		out = append(out, ev.Type)
	}
	return out
}

type fakeScoreStore struct {
	saved chan game.RoundResult
}

func (f *fakeScoreStore) SaveRoundScore(_ context.Context, _ string, result game.RoundResult) error {
	f.saved <- result
	return nil
}

func newTestEngine(limits Limits, opts ...Option) (*Engine, *recordingBroadcaster, *clockwork.FakeClock) {
	bc := newRecordingBroadcaster()
	clock := clockwork.NewFakeClockAt(testBase)
	registry := testRegistry(limits)
	opts = append(opts, WithClock(clock))
	return New(registry, bc, limits, opts...), bc, clock
}

// mustSession resolves the session a test connection has joined.
func mustSession(t *testing.T, e *Engine, connID string) *game.Session {
	t.Helper()
	s, err := e.registry.SessionFor(connID)
	require.NoError(t, err)
	return s
}

func TestEngine_JoinSendsSnapshotThenDelta(t *testing.T) {
	e, bc, _ := newTestEngine(DefaultLimits())

	require.NoError(t, e.Join("c1", "kitchen-1", "alice"))

	assert.Equal(t, []events.Type{events.TypeGameState}, bc.connTypes("c1"))
	assert.Equal(t, []events.Type{events.TypePlayerJoined}, bc.roomTypes())
}

func TestEngine_JoinRejectionReportsError(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxPlayersPerRoom = 1
	e, bc, _ := newTestEngine(limits)

	require.NoError(t, e.Join("c1", "kitchen-1", "alice"))
	err := e.Join("c2", "kitchen-1", "bob")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, []events.Type{events.TypeError}, bc.connTypes("c2"))
}

func TestEngine_ActionFlowEmitsInMutationOrder(t *testing.T) {
	e, bc, _ := newTestEngine(DefaultLimits())
	require.NoError(t, e.Join("c1", "kitchen-1", "alice"))
	e.StartRound("c1")
	s := mustSession(t, e, "c1")

	e.PrepareIngredient("c1", "base")
	ingredientID := s.Snapshot().PreparedIngredients[0].ID
	e.TakeIngredient("c1", ingredientID, "")
	e.BuildPizza("c1", []string{"base", "sauce", "ham", "ham", "ham", "ham"}, "")
	pizzaID := s.Snapshot().BuiltPizzas[0].ID
	e.MoveToOven("c1", pizzaID)
	e.ToggleOven("c1", true)

	assert.Equal(t, []events.Type{
		events.TypePlayerJoined,
		events.TypeRoundStarted,
		events.TypeIngredientPrepared,
		events.TypeIngredientRemoved,
		events.TypePizzaBuilt,
		events.TypePizzaMovedToOven,
		events.TypeOvenToggled,
	}, bc.roomTypes())
}

func TestEngine_WastedBuildIsSenderScoped(t *testing.T) {
	e, bc, _ := newTestEngine(DefaultLimits())
	require.NoError(t, e.Join("c1", "kitchen-1", "alice"))
	e.StartRound("c1")

	e.BuildPizza("c1", []string{"ham"}, "")

	assert.Zero(t, bc.countRoom(events.TypePizzaBuilt))
	assert.Contains(t, bc.connTypes("c1"), events.TypeBuildError)
}

func TestEngine_ConflictActionsStaySilent(t *testing.T) {
	e, bc, _ := newTestEngine(DefaultLimits())
	require.NoError(t, e.Join("c1", "kitchen-1", "alice"))

	// Still waiting: prepare and a second start are dropped without an error
	// event, but oven actions always answer.
	e.PrepareIngredient("c1", "base")
	e.StartRound("c1")
	e.StartRound("c1")
	e.ToggleOven("c1", true)
	e.ToggleOven("c1", true)

	assert.Equal(t, 1, bc.countRoom(events.TypeRoundStarted))
	assert.Equal(t, 1, bc.countRoom(events.TypeOvenToggled))
	assert.Equal(t, []events.Type{events.TypeGameState, events.TypeOvenError}, bc.connTypes("c1"))
}

func TestEngine_RoundTimerChain(t *testing.T) {
	e, bc, _ := newTestEngine(DefaultLimits())
	require.NoError(t, e.Join("c1", "kitchen-1", "alice"))
	e.StartRound("c1")
	s := mustSession(t, e, "c1")

	gen := s.Gen()
	e.onRoundTimerFired(s, gen)
	assert.Equal(t, game.PhaseDebrief, s.Phase())
	assert.Equal(t, 1, bc.countRoom(events.TypeRoundEnded))

	// A duplicate firing under the old generation changes nothing.
	e.onRoundTimerFired(s, gen)
	assert.Equal(t, 1, bc.countRoom(events.TypeRoundEnded))

	e.onDebriefTimerFired(s, s.Gen())
	assert.Equal(t, 2, bc.countRoom(events.TypeRoundStarted))
	assert.Equal(t, game.PhaseRound, s.Phase())
}

func TestEngine_FinalRoundEndsGameCycle(t *testing.T) {
	e, bc, _ := newTestEngine(DefaultLimits())
	require.NoError(t, e.Join("c1", "kitchen-1", "alice"))
	e.StartRound("c1")
	s := mustSession(t, e, "c1")

	for round := 1; round <= game.DefaultRules().MaxRounds; round++ {
		e.onRoundTimerFired(s, s.Gen())
		e.onDebriefTimerFired(s, s.Gen())
	}

	assert.Equal(t, 1, bc.countRoom(events.TypeGameOver))
	assert.Equal(t, 1, bc.countRoom(events.TypeGameReset))
	assert.Equal(t, game.PhaseWaiting, s.Phase())
}

func TestEngine_OrderReleaseEmitsNewOrders(t *testing.T) {
	e, bc, _ := newTestEngine(DefaultLimits())
	require.NoError(t, e.Join("c1", "kitchen-1", "alice"))
	e.StartRound("c1")
	s := mustSession(t, e, "c1")

	// Advance through debriefs to the orders round.
	e.onRoundTimerFired(s, s.Gen())
	e.onDebriefTimerFired(s, s.Gen())
	e.onRoundTimerFired(s, s.Gen())
	e.onDebriefTimerFired(s, s.Gen())
	require.Equal(t, 3, bc.countRoom(events.TypeRoundStarted))

	// The first customer order arrives at round start.
	e.onOrderTimerFired(s, s.Gen())
	assert.Equal(t, 1, bc.countRoom(events.TypeNewOrder))
	assert.Equal(t, 1, s.OpenOrderCount())

	// A firing from a dead round releases nothing.
	e.onOrderTimerFired(s, s.Gen()-1)
	assert.Equal(t, 1, bc.countRoom(events.TypeNewOrder))
}

func TestEngine_RoundScorePersisted(t *testing.T) {
	store := &fakeScoreStore{saved: make(chan game.RoundResult, 1)}
	e, _, _ := newTestEngine(DefaultLimits(), WithScoreStore(store))
	require.NoError(t, e.Join("c1", "kitchen-1", "alice"))
	e.StartRound("c1")
	s := mustSession(t, e, "c1")

	e.onRoundTimerFired(s, s.Gen())

	select {
	case result := <-store.saved:
		assert.Equal(t, 1, result.Round)
	case <-time.After(2 * time.Second):
		t.Fatal("round score was not persisted")
	}
}

func TestEngine_DisconnectDrainsRoom(t *testing.T) {
	e, bc, _ := newTestEngine(DefaultLimits())
	require.NoError(t, e.Join("c1", "kitchen-1", "alice"))

	e.Disconnect("c1")

	assert.Equal(t, []events.Type{
		events.TypePlayerJoined,
		events.TypePlayerLeft,
		events.TypeRoomClosing,
	}, bc.roomTypes())
	assert.Zero(t, e.registry.RoomCount())
}

func TestEngine_ReapRemovesIdlePlayersAndRooms(t *testing.T) {
	limits := DefaultLimits()
	limits.PlayerIdleTimeout = time.Minute
	limits.RoomIdleTimeout = 5 * time.Minute
	e, bc, clock := newTestEngine(limits)
	require.NoError(t, e.Join("c1", "kitchen-1", "alice"))

	clock.Advance(2 * time.Minute)
	e.reap()

	assert.Equal(t, 1, bc.countRoom(events.TypePlayerLeft))
	assert.Equal(t, 1, bc.countRoom(events.TypeRoomClosing))
	assert.Zero(t, e.registry.RoomCount())
}

func TestEngine_ReapSparesActiveRooms(t *testing.T) {
	limits := DefaultLimits()
	e, bc, _ := newTestEngine(limits)
	require.NoError(t, e.Join("c1", "kitchen-1", "alice"))

	e.reap()

	assert.Zero(t, bc.countRoom(events.TypeRoomClosing))
	assert.Equal(t, 1, e.registry.RoomCount())
}
