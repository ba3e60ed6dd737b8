package engine

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/kanbanpizza/server/internal/events"
	"github.com/kanbanpizza/server/internal/game"
)

// Broadcaster delivers events to room members. Implemented by the websocket
// gateway.
type Broadcaster interface {
	BroadcastToRoom(room string, event *events.Event)
	SendToConn(connID string, event *events.Event)
}

// Publisher replicates room broadcasts to co-located server processes.
// Sender-scoped events stay local.
type Publisher interface {
	PublishRoomEvent(room string, event *events.Event) error
}

// ScoreStore persists round results for the historical leaderboard. Failures
// are logged and never affect the session.
type ScoreStore interface {
	SaveRoundScore(ctx context.Context, room string, result game.RoundResult) error
}

// Engine runs every room session: it applies player actions, drives the
// phase-timer chains and emits broadcasts. Broadcasts are emitted only after
// the mutation is applied to the session, in the order the mutations
// happened.
type Engine struct {
	registry  *Registry
	clock     clockwork.Clock
	broadcast Broadcaster
	publisher Publisher
	scores    ScoreStore
	limits    Limits
	done      chan struct{}
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithPublisher attaches a cross-process event publisher.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithScoreStore attaches round-score persistence.
func WithScoreStore(s ScoreStore) Option {
	return func(e *Engine) { e.scores = s }
}

// WithClock overrides the engine clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// New creates an engine over the given registry and broadcast sink.
func New(registry *Registry, broadcast Broadcaster, limits Limits, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		clock:     clockwork.NewRealClock(),
		broadcast: broadcast,
		limits:    limits,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the session registry, for observability endpoints.
func (e *Engine) Registry() *Registry { return e.registry }

// Run drives the idle reaper until ctx is cancelled, then stops all pending
// timer chains.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	interval := e.limits.ReapInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("reap_interval", interval).Msg("engine started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("engine shutting down")
			return nil
		case <-ticker.Chan():
			e.reap()
		}
	}
}

// emitRoom broadcasts a room event locally and, when a publisher is wired,
// replicates it to other processes.
func (e *Engine) emitRoom(room string, t events.Type, payload any) {
	ev, err := events.New(room, t, payload)
	if err != nil {
		log.Error().Err(err).Str("room", room).Str("event_type", string(t)).Msg("failed to build event")
		return
	}
	e.broadcast.BroadcastToRoom(room, ev)
	if e.publisher != nil {
		if err := e.publisher.PublishRoomEvent(room, ev); err != nil {
			log.Warn().Err(err).Str("room", room).Str("event_type", string(t)).Msg("event fan-out failed")
		}
	}
}

// emitConn sends a sender-scoped event to one connection.
func (e *Engine) emitConn(connID, room string, t events.Type, payload any) {
	ev, err := events.New(room, t, payload)
	if err != nil {
		log.Error().Err(err).Str("conn_id", connID).Str("event_type", string(t)).Msg("failed to build event")
		return
	}
	e.broadcast.SendToConn(connID, ev)
}

// Join adds a connection to a room, creating the session on first join. The
// joining client receives the full state snapshot; the room learns about the
// new member via a delta event.
func (e *Engine) Join(connID, room, name string) error {
	now := e.clock.Now()
	_, snap, err := e.registry.Join(connID, room, name, now)
	if err != nil {
		e.emitConn(connID, room, events.TypeError, events.ErrorPayload{Message: err.Error()})
		return err
	}
	e.emitConn(connID, room, events.TypeGameState, snap)
	e.emitRoom(room, events.TypePlayerJoined, events.PlayerJoinedPayload{ConnID: connID, Name: name})
	log.Info().Str("conn_id", connID).Str("room", room).Msg("player joined")
	return nil
}

// Disconnect removes a connection from its room, tearing the room down if it
// drained.
func (e *Engine) Disconnect(connID string) {
	now := e.clock.Now()
	s, empty := e.registry.Leave(connID, now)
	if s == nil {
		return
	}
	e.emitRoom(s.Room(), events.TypePlayerLeft, events.PlayerLeftPayload{ConnID: connID})
	log.Info().Str("conn_id", connID).Str("room", s.Room()).Msg("player left")
	if empty {
		e.teardownRoom(s, "room empty")
	}
}

// PrepareIngredient handles a prepare action.
func (e *Engine) PrepareIngredient(connID, ingredientType string) {
	s, err := e.registry.SessionFor(connID)
	if err != nil {
		return
	}
	t, err := game.ParseIngredientType(ingredientType)
	if err != nil {
		e.emitConn(connID, s.Room(), events.TypeError, events.ErrorPayload{Message: "Invalid ingredient type"})
		return
	}
	ing, err := s.PrepareIngredient(connID, t, e.clock.Now())
	if err != nil {
		// Wrong phase is not player-visible here.
		return
	}
	e.emitRoom(s.Room(), events.TypeIngredientPrepared, ing)
}

// TakeIngredient handles an ingredient claim, optionally handing the token
// to a target player's builder buffer.
func (e *Engine) TakeIngredient(connID, ingredientID, target string) {
	s, err := e.registry.SessionFor(connID)
	if err != nil {
		return
	}
	res, err := s.TakeIngredient(connID, ingredientID, target, e.clock.Now())
	if err != nil {
		if !game.IsConflict(err) {
			e.emitConn(connID, s.Room(), events.TypeError, events.ErrorPayload{Message: "Ingredient not available."})
		}
		return
	}
	e.emitRoom(s.Room(), events.TypeIngredientRemoved, events.IngredientRemovedPayload{
		IngredientID: res.Ingredient.ID,
		HandedTo:     res.HandedTo,
	})
}

// BuildPizza handles a build action from an explicit ingredient list or a
// player's builder buffer.
func (e *Engine) BuildPizza(connID string, ingredientTypes []string, target string) {
	s, err := e.registry.SessionFor(connID)
	if err != nil {
		return
	}
	explicit := make([]game.IngredientType, 0, len(ingredientTypes))
	for _, t := range ingredientTypes {
		explicit = append(explicit, game.IngredientType(t))
	}

	res, err := s.BuildPizza(connID, explicit, target, e.clock.Now())
	if err != nil {
		if !game.IsConflict(err) {
			e.emitConn(connID, s.Room(), events.TypeBuildError, events.ErrorPayload{Message: err.Error()})
		}
		return
	}

	if res.Wasted {
		msg := "Invalid combo: Wasted."
		if res.Pizza.Status == game.StatusUnmatched {
			msg = "No matching order."
		}
		e.emitConn(connID, s.Room(), events.TypeBuildError, events.ErrorPayload{Message: msg})
	} else {
		if res.FulfilledOrder != nil {
			e.emitRoom(s.Room(), events.TypeOrderFulfilled, events.OrderFulfilledPayload{OrderID: res.FulfilledOrder.ID})
		}
		e.emitRoom(s.Room(), events.TypePizzaBuilt, res.Pizza)
	}
	if res.ClearedBuilder != "" {
		e.emitRoom(s.Room(), events.TypeBuilderCleared, events.BuilderClearedPayload{ConnID: res.ClearedBuilder})
	}
}

// MoveToOven loads a built pizza into the oven.
func (e *Engine) MoveToOven(connID, pizzaID string) {
	s, err := e.registry.SessionFor(connID)
	if err != nil {
		return
	}
	pizza, err := s.MoveToOven(connID, pizzaID, e.clock.Now())
	if err != nil {
		e.emitConn(connID, s.Room(), events.TypeOvenError, events.ErrorPayload{Message: err.Error()})
		return
	}
	e.emitRoom(s.Room(), events.TypePizzaMovedToOven, pizza)
}

// ToggleOven switches the oven on or off. Switching off grades and evicts
// every pizza inside.
func (e *Engine) ToggleOven(connID string, on bool) {
	s, err := e.registry.SessionFor(connID)
	if err != nil {
		return
	}
	res, err := s.ToggleOven(connID, on, e.clock.Now())
	if err != nil {
		e.emitConn(connID, s.Room(), events.TypeOvenError, events.ErrorPayload{Message: err.Error()})
		return
	}
	state := "off"
	if res.On {
		state = "on"
	}
	e.emitRoom(s.Room(), events.TypeOvenToggled, events.OvenToggledPayload{State: state})
}

// StartRound begins a round from the waiting phase and arms its timer
// chain. In any other phase it is a silent no-op.
func (e *Engine) StartRound(connID string) {
	s, err := e.registry.SessionFor(connID)
	if err != nil {
		return
	}
	started, err := s.StartRound(e.clock.Now())
	if err != nil {
		return
	}
	e.beginRound(s, started)
}

// TimeRequest answers a live time query for the requesting connection.
func (e *Engine) TimeRequest(connID string) {
	s, err := e.registry.SessionFor(connID)
	if err != nil {
		return
	}
	e.emitConn(connID, s.Room(), events.TypeTimeResponse, s.TimeRemaining(e.clock.Now()))
}

// teardownRoom notifies any remaining members and evicts the room.
func (e *Engine) teardownRoom(s *game.Session, reason string) {
	e.emitRoom(s.Room(), events.TypeRoomClosing, events.RoomClosingPayload{Reason: reason})
	e.registry.Evict(s.Room())
	log.Info().Str("room", s.Room()).Str("reason", reason).Msg("room torn down")
}

// reap force-removes idle players and tears down idle or empty rooms.
func (e *Engine) reap() {
	now := e.clock.Now()
	for _, s := range e.registry.Sessions() {
		if e.limits.PlayerIdleTimeout > 0 {
			for _, connID := range s.IdlePlayers(now.Add(-e.limits.PlayerIdleTimeout)) {
				if removed, _ := s.RemovePlayer(connID, now); removed {
					e.emitRoom(s.Room(), events.TypePlayerLeft, events.PlayerLeftPayload{ConnID: connID, Reason: "idle"})
					log.Info().Str("conn_id", connID).Str("room", s.Room()).Msg("idle player removed")
				}
			}
		}
		idle := e.limits.RoomIdleTimeout > 0 && s.LastActivity().Before(now.Add(-e.limits.RoomIdleTimeout))
		if s.PlayerCount() == 0 || idle {
			reason := "room empty"
			if idle {
				reason = "room idle"
			}
			e.teardownRoom(s, reason)
		}
	}
}
