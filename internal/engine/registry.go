package engine

import (
	"sync"
	"time"

	"github.com/kanbanpizza/server/internal/game"
)

// Limits bounds the registry's resource usage.
type Limits struct {
	MaxRooms          int
	MaxPlayersPerRoom int
	PlayerIdleTimeout time.Duration
	RoomIdleTimeout   time.Duration
	ReapInterval      time.Duration
}

// DefaultLimits returns the production registry limits.
func DefaultLimits() Limits {
	return Limits{
		MaxRooms:          200,
		MaxPlayersPerRoom: 12,
		PlayerIdleTimeout: 15 * time.Minute,
		RoomIdleTimeout:   30 * time.Minute,
		ReapInterval:      time.Minute,
	}
}

// Registry owns the room-name → session and connection → room mappings. It
// is the only structure shared across rooms; all game state mutation happens
// inside a session's own lock, so rooms never block one another here beyond
// map access.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*game.Session
	conns map[string]string

	rules  game.Rules
	limits Limits
}

// NewRegistry creates an empty registry.
func NewRegistry(rules game.Rules, limits Limits) *Registry {
	return &Registry{
		rooms:  make(map[string]*game.Session),
		conns:  make(map[string]string),
		rules:  rules,
		limits: limits,
	}
}

// Join resolves or creates the session for a room and registers the
// connection in it. The returned snapshot is the joining client's initial
// full state.
func (r *Registry) Join(connID, room, name string, now time.Time) (*game.Session, game.Snapshot, error) {
	r.mu.Lock()
	s, ok := r.rooms[room]
	if !ok {
		if r.limits.MaxRooms > 0 && len(r.rooms) >= r.limits.MaxRooms {
			r.mu.Unlock()
			return nil, game.Snapshot{}, ErrTooManyRooms
		}
		s = game.NewSession(room, r.rules, now)
		r.rooms[room] = s
	}
	if r.limits.MaxPlayersPerRoom > 0 && s.PlayerCount() >= r.limits.MaxPlayersPerRoom {
		r.mu.Unlock()
		return nil, game.Snapshot{}, ErrRoomFull
	}
	r.conns[connID] = room
	r.mu.Unlock()

	return s, s.AddPlayer(connID, name, now), nil
}

// SessionFor resolves the session a connection has joined.
func (r *Registry) SessionFor(connID string) (*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.conns[connID]
	if !ok {
		return nil, ErrNotInRoom
	}
	s, ok := r.rooms[room]
	if !ok {
		return nil, ErrNotInRoom
	}
	return s, nil
}

// Leave removes a connection from its room. empty reports whether the room's
// player set drained, making it eligible for eviction.
func (r *Registry) Leave(connID string, now time.Time) (s *game.Session, empty bool) {
	r.mu.Lock()
	room, ok := r.conns[connID]
	if ok {
		delete(r.conns, connID)
		s = r.rooms[room]
	}
	r.mu.Unlock()
	if s == nil {
		return nil, false
	}
	_, empty = s.RemovePlayer(connID, now)
	return s, empty
}

// Evict tears a room down, dropping its session and any connection mappings
// still pointing at it.
func (r *Registry) Evict(room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, room)
	for conn, rm := range r.conns {
		if rm == room {
			delete(r.conns, conn)
		}
	}
}

// Sessions returns a snapshot of all live sessions.
func (r *Registry) Sessions() []*game.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*game.Session, 0, len(r.rooms))
	for _, s := range r.rooms {
		out = append(out, s)
	}
	return out
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
