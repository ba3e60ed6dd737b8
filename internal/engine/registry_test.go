package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanbanpizza/server/internal/game"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testRegistry(limits Limits) *Registry {
	return NewRegistry(game.DefaultRules(), limits)
}

func TestRegistry_JoinCreatesRoom(t *testing.T) {
	r := testRegistry(DefaultLimits())

	s, snap, err := r.Join("c1", "kitchen-1", "alice", testBase)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 1, r.RoomCount())
	assert.Contains(t, snap.Players, "c1")

	resolved, err := r.SessionFor("c1")
	require.NoError(t, err)
	assert.Same(t, s, resolved)
}

func TestRegistry_JoinSharesSession(t *testing.T) {
	r := testRegistry(DefaultLimits())

	s1, _, err := r.Join("c1", "kitchen-1", "alice", testBase)
	require.NoError(t, err)
	s2, snap, err := r.Join("c2", "kitchen-1", "bob", testBase)
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, 1, r.RoomCount())
	assert.Len(t, snap.Players, 2)
}

func TestRegistry_RoomCapEnforced(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxRooms = 1
	r := testRegistry(limits)

	_, _, err := r.Join("c1", "kitchen-1", "alice", testBase)
	require.NoError(t, err)
	_, _, err = r.Join("c2", "kitchen-2", "bob", testBase)
	assert.ErrorIs(t, err, ErrTooManyRooms)

	// Rejoining an existing room is still allowed at the cap.
	_, _, err = r.Join("c3", "kitchen-1", "carol", testBase)
	assert.NoError(t, err)
}

func TestRegistry_PlayerCapEnforced(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxPlayersPerRoom = 1
	r := testRegistry(limits)

	_, _, err := r.Join("c1", "kitchen-1", "alice", testBase)
	require.NoError(t, err)
	_, _, err = r.Join("c2", "kitchen-1", "bob", testBase)
	assert.ErrorIs(t, err, ErrRoomFull)

	// The rejected connection must not be left mapped to the room.
	_, err = r.SessionFor("c2")
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestRegistry_LeaveReportsEmpty(t *testing.T) {
	r := testRegistry(DefaultLimits())
	_, _, err := r.Join("c1", "kitchen-1", "alice", testBase)
	require.NoError(t, err)
	_, _, err = r.Join("c2", "kitchen-1", "bob", testBase)
	require.NoError(t, err)

	s, empty := r.Leave("c1", testBase)
	require.NotNil(t, s)
	assert.False(t, empty)

	s, empty = r.Leave("c2", testBase)
	require.NotNil(t, s)
	assert.True(t, empty)

	s, empty = r.Leave("ghost", testBase)
	assert.Nil(t, s)
	assert.False(t, empty)
}

func TestRegistry_EvictDropsConnections(t *testing.T) {
	r := testRegistry(DefaultLimits())
	_, _, err := r.Join("c1", "kitchen-1", "alice", testBase)
	require.NoError(t, err)

	r.Evict("kitchen-1")
	assert.Zero(t, r.RoomCount())
	_, err = r.SessionFor("c1")
	assert.ErrorIs(t, err, ErrNotInRoom)
}
