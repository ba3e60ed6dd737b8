package game

import (
	"sync"
	"time"
)

// Phase is the top-level state of a session.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseRound    Phase = "round"
	PhaseDebrief  Phase = "debrief"
	PhaseFinished Phase = "finished"
)

// Player is one connected participant, owned exclusively by its session.
// Builder is the private staging buffer used for collaborative hand-off play
// from round 2 onward.
type Player struct {
	ConnID     string       `json:"conn_id"`
	Name       string       `json:"name"`
	Builder    []Ingredient `json:"builder_ingredients"`
	LastActive time.Time    `json:"-"`
}

// Session is one room's game state. All exported methods serialize through
// the session mutex, so concurrent player actions against the same room
// never race while different rooms never contend with each other.
//
// Phase transitions bump gen. Timer callbacks carry the generation they were
// scheduled under and are rejected when it no longer matches, so a stale
// timer from an earlier chain can never re-trigger an advanced phase.
type Session struct {
	mu    sync.Mutex
	room  string
	rules Rules

	phase        Phase
	round        int
	roundStart   time.Time
	debriefStart time.Time
	gen          uint64
	gameOver     bool

	ovenOn    bool
	ovenStart time.Time

	pool      []Ingredient
	built     []*Pizza
	oven      []*Pizza
	completed []*Pizza
	wasted    []*Pizza

	openOrders    []Order
	pendingOrders []Order

	players      map[string]*Player
	lastActivity time.Time
}

// NewSession creates a waiting session for a room.
func NewSession(room string, rules Rules, now time.Time) *Session {
	return &Session{
		room:         room,
		rules:        rules,
		phase:        PhaseWaiting,
		round:        1,
		players:      make(map[string]*Player),
		lastActivity: now,
	}
}

// Room returns the room name the session belongs to.
func (s *Session) Room() string { return s.room }

// Rules returns the session's gameplay tunables.
func (s *Session) Rules() Rules { return s.rules }

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Gen returns the current phase generation.
func (s *Session) Gen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// touch records activity for the session and, when known, the acting player.
// Callers must hold s.mu.
func (s *Session) touch(connID string, now time.Time) {
	s.lastActivity = now
	if p, ok := s.players[connID]; ok {
		p.LastActive = now
	}
}

// AddPlayer registers a connection with the session and returns a full state
// snapshot for the joining client.
func (s *Session) AddPlayer(connID, name string, now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[connID]; !ok {
		s.players[connID] = &Player{ConnID: connID, Name: name, LastActive: now}
	}
	s.lastActivity = now
	return s.snapshotLocked()
}

// RemovePlayer drops a connection from the session. empty reports whether
// the player set is now empty, which makes the session eligible for
// teardown.
func (s *Session) RemovePlayer(connID string, now time.Time) (removed, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[connID]; !ok {
		return false, len(s.players) == 0
	}
	delete(s.players, connID)
	s.lastActivity = now
	return true, len(s.players) == 0
}

// PlayerCount returns the number of connected players.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// IdlePlayers returns the connections with no activity since the cutoff.
func (s *Session) IdlePlayers(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var idle []string
	for id, p := range s.players {
		if p.LastActive.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	return idle
}

// LastActivity returns the session's last activity timestamp.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// RoundStarted describes a freshly started round. Gen is the phase
// generation the round's timer chain must be bound to.
type RoundStarted struct {
	Round     int
	Duration  time.Duration
	Gen       uint64
	HasOrders bool
}

// StartRound begins round play from the waiting phase. Calling it in any
// other phase is a conflict no-op: no reset happens and no new timer chain
// may be scheduled.
func (s *Session) StartRound(now time.Time) (RoundStarted, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseWaiting {
		return RoundStarted{}, ErrWrongPhase
	}
	s.touch("", now)
	return s.beginRoundLocked(now), nil
}

// beginRoundLocked resets all per-round state and enters the round phase.
// Callers must hold s.mu.
func (s *Session) beginRoundLocked(now time.Time) RoundStarted {
	s.pool = nil
	s.built = nil
	s.oven = nil
	s.completed = nil
	s.wasted = nil
	s.openOrders = nil
	s.pendingOrders = nil
	s.ovenOn = false
	s.ovenStart = time.Time{}
	for _, p := range s.players {
		p.Builder = nil
	}

	s.phase = PhaseRound
	s.roundStart = now
	s.debriefStart = time.Time{}
	s.gen++

	if s.round == OrdersRound {
		s.pendingOrders = GenerateOrders(s.rules.RoundDuration, s.rules.OrderWindowMargin, s.rules.OrderCount)
	}

	return RoundStarted{
		Round:     s.round,
		Duration:  s.rules.RoundDuration,
		Gen:       s.gen,
		HasOrders: s.round == OrdersRound,
	}
}

// RoundEnded is the outcome of a round-end transition.
type RoundEnded struct {
	Result RoundResult
	Final  bool
	Gen    uint64
}

// EndRound moves the session into debrief and computes the round result.
// The generation check makes a stale round timer a silent no-op.
func (s *Session) EndRound(now time.Time, gen uint64) (RoundEnded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.phase != PhaseRound {
		return RoundEnded{}, false
	}

	result := s.roundResultLocked()
	s.phase = PhaseDebrief
	s.debriefStart = now
	s.roundStart = time.Time{}
	s.gen++
	s.lastActivity = now

	final := s.round >= s.rules.MaxRounds
	if final {
		s.gameOver = true
	} else {
		s.round++
	}
	return RoundEnded{Result: result, Final: final, Gen: s.gen}, true
}

// roundResultLocked aggregates the round-end snapshot. Callers must hold
// s.mu.
func (s *Session) roundResultLocked() RoundResult {
	r := RoundResult{
		Round:           s.round,
		CompletedPizzas: len(s.completed),
		WastedPizzas:    len(s.wasted),
		UnsoldPizzas:    len(s.built) + len(s.oven),
		IngredientsLeft: len(s.pool),
	}
	if s.round == OrdersRound {
		for _, p := range s.completed {
			if p.Fulfilled() {
				r.FulfilledOrders++
			} else {
				r.UnmatchedPizzas++
			}
		}
		r.RemainingOrders = len(s.openOrders) + len(s.pendingOrders)
	}
	r.Score = r.score()
	return r
}

// DebriefOutcome describes what followed a debrief: either the next round
// began (NextRound set) or the game cycle ended and the session returned to
// waiting.
type DebriefOutcome struct {
	NextRound *RoundStarted
}

// AdvanceAfterDebrief fires when the debrief timer elapses. A stale
// generation is a silent no-op.
func (s *Session) AdvanceAfterDebrief(now time.Time, gen uint64) (DebriefOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.phase != PhaseDebrief {
		return DebriefOutcome{}, false
	}

	if s.gameOver {
		s.resetToWaitingLocked(now)
		return DebriefOutcome{}, true
	}

	started := s.beginRoundLocked(now)
	return DebriefOutcome{NextRound: &started}, true
}

// resetToWaitingLocked ends the game cycle: round counter back to 1, all
// per-round state released. Callers must hold s.mu.
func (s *Session) resetToWaitingLocked(now time.Time) {
	s.phase = PhaseWaiting
	s.round = 1
	s.gameOver = false
	s.roundStart = time.Time{}
	s.debriefStart = time.Time{}
	s.pool = nil
	s.built = nil
	s.oven = nil
	s.completed = nil
	s.wasted = nil
	s.openOrders = nil
	s.pendingOrders = nil
	s.ovenOn = false
	s.ovenStart = time.Time{}
	for _, p := range s.players {
		p.Builder = nil
	}
	s.gen++
	s.lastActivity = now
}

// TimeInfo is the answer to a live time query. It is a pure read.
type TimeInfo struct {
	Phase              Phase `json:"phase"`
	Round              int   `json:"round"`
	RoundTimeRemaining int   `json:"round_time_remaining"`
	OvenTime           int   `json:"oven_time"`
}

// TimeRemaining reports remaining round or debrief time and, when the oven
// is on, its current elapsed time. Values are clamped to zero and nothing is
// mutated.
func (s *Session) TimeRemaining(now time.Time) TimeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := TimeInfo{Phase: s.phase, Round: s.round}
	switch {
	case s.phase == PhaseRound && !s.roundStart.IsZero():
		info.RoundTimeRemaining = clampSeconds(s.rules.RoundDuration - now.Sub(s.roundStart))
	case s.phase == PhaseDebrief && !s.debriefStart.IsZero():
		info.RoundTimeRemaining = clampSeconds(s.rules.DebriefDuration - now.Sub(s.debriefStart))
	}
	if s.ovenOn && !s.ovenStart.IsZero() {
		info.OvenTime = int(now.Sub(s.ovenStart).Seconds())
	}
	return info
}

func clampSeconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d.Seconds())
}
