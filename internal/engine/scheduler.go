package engine

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/kanbanpizza/server/internal/events"
	"github.com/kanbanpizza/server/internal/game"
)

// Timer chains. Each room has at most one live chain: round timer → debrief
// timer → next round timer, plus an order-release chain during round 3.
// Every scheduled firing carries the phase generation it was armed under and
// the session rejects it if the phase has moved on, so overlapping or stale
// timers degrade to no-ops instead of double transitions.

// beginRound announces a started round and arms its timers.
func (e *Engine) beginRound(s *game.Session, started game.RoundStarted) {
	e.emitRoom(s.Room(), events.TypeRoundStarted, events.RoundStartedPayload{
		Round:    started.Round,
		Duration: int(started.Duration.Seconds()),
	})
	log.Info().
		Str("room", s.Room()).
		Int("round", started.Round).
		Dur("duration", started.Duration).
		Msg("round started")

	e.schedule(started.Duration, func() {
		e.onRoundTimerFired(s, started.Gen)
	})
	if started.HasOrders {
		e.scheduleOrderRelease(s, started.Gen)
	}
}

// onRoundTimerFired ends the round unless the phase already advanced.
func (e *Engine) onRoundTimerFired(s *game.Session, gen uint64) {
	ended, ok := s.EndRound(e.clock.Now(), gen)
	if !ok {
		log.Debug().Str("room", s.Room()).Uint64("gen", gen).Msg("stale round timer ignored")
		return
	}

	e.emitRoom(s.Room(), events.TypeRoundEnded, ended.Result)
	log.Info().
		Str("room", s.Room()).
		Int("round", ended.Result.Round).
		Int("score", ended.Result.Score).
		Msg("round ended")

	if e.scores != nil {
		go e.persistScore(s.Room(), ended.Result)
	}
	if ended.Final {
		e.emitRoom(s.Room(), events.TypeGameOver, ended.Result)
	}

	e.schedule(s.Rules().DebriefDuration, func() {
		e.onDebriefTimerFired(s, ended.Gen)
	})
}

// onDebriefTimerFired either starts the next round or resets the finished
// game back to waiting.
func (e *Engine) onDebriefTimerFired(s *game.Session, gen uint64) {
	outcome, ok := s.AdvanceAfterDebrief(e.clock.Now(), gen)
	if !ok {
		log.Debug().Str("room", s.Room()).Uint64("gen", gen).Msg("stale debrief timer ignored")
		return
	}
	if outcome.NextRound == nil {
		e.emitRoom(s.Room(), events.TypeGameReset, s.Snapshot())
		log.Info().Str("room", s.Room()).Msg("game cycle finished, back to waiting")
		return
	}
	e.beginRound(s, *outcome.NextRound)
}

// scheduleOrderRelease arms a timer for the next pending customer order. On
// firing it releases every due order in bounded batches and re-arms for the
// following arrival. The chain dies with the round via the generation guard
// inside ReleaseDueOrders' phase checks and the gen check here.
func (e *Engine) scheduleOrderRelease(s *game.Session, gen uint64) {
	wait, ok := s.NextOrderDue(e.clock.Now())
	if !ok {
		return
	}
	if wait < 0 {
		wait = 0
	}
	e.schedule(wait, func() {
		e.onOrderTimerFired(s, gen)
	})
}

func (e *Engine) onOrderTimerFired(s *game.Session, gen uint64) {
	if s.Gen() != gen {
		log.Debug().Str("room", s.Room()).Uint64("gen", gen).Msg("stale order timer ignored")
		return
	}
	batch := s.Rules().OrderReleaseBatch
	for {
		released := s.ReleaseDueOrders(e.clock.Now(), batch)
		if len(released) == 0 {
			break
		}
		for _, order := range released {
			e.emitRoom(s.Room(), events.TypeNewOrder, order)
		}
		log.Debug().Str("room", s.Room()).Int("released", len(released)).Msg("customer orders released")
		if len(released) < batch {
			break
		}
	}
	e.scheduleOrderRelease(s, gen)
}

// schedule runs fn after d on the engine clock. The firing goroutine follows
// the one-shot timer pattern: wait on the timer channel, bail out cleanly if
// the engine is shutting down.
func (e *Engine) schedule(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	timer := e.clock.NewTimer(d)
	go func() {
		select {
		case <-timer.Chan():
			fn()
		case <-e.done:
			stopAndDrainTimer(timer)
		}
	}()
}

// stopAndDrainTimer stops a timer and drains its channel so the goroutine
// waiting on it cannot leak a pending tick.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// persistScore writes a round result to the score store with a bounded
// deadline. Persistence is best-effort: the session is never affected.
func (e *Engine) persistScore(room string, result game.RoundResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.scores.SaveRoundScore(ctx, room, result); err != nil {
		log.Error().Err(err).Str("room", room).Int("round", result.Round).Msg("failed to persist round score")
	}
}
