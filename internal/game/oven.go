package game

import "time"

// MoveToOven loads a built pizza into the oven. The oven only accepts
// pizzas while it is off and below capacity. Baking time accumulated from a
// previous on/off cycle is preserved; only the entry timestamp resets.
func (s *Session) MoveToOven(connID, pizzaID string, now time.Time) (*Pizza, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRound {
		return nil, ErrWrongPhase
	}
	if s.ovenOn {
		return nil, ErrOvenBusy
	}
	if len(s.oven) >= s.rules.MaxPizzasInOven {
		return nil, ErrOvenFull
	}

	idx := -1
	for i, p := range s.built {
		if p.ID == pizzaID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrPizzaNotFound
	}

	pizza := s.built[idx]
	s.built = append(s.built[:idx], s.built[idx+1:]...)
	pizza.OvenEntry = now
	s.oven = append(s.oven, pizza)
	s.touch(connID, now)
	return pizza, nil
}

// OvenToggle is the outcome of a successful oven transition. Graded holds
// the pizzas evicted when the oven switched off, each with its terminal
// status already applied.
type OvenToggle struct {
	On     bool
	Graded []*Pizza
}

// ToggleOven drives the oven's ON/OFF state machine. Switching on records
// the activation timestamp. Switching off adds the cycle's elapsed time to
// every pizza in the oven, grades each one on its cumulative baking time and
// evicts them all to completed or wasted. A transition from the wrong state
// changes nothing and reports the conflict to the caller only.
func (s *Session) ToggleOven(connID string, on bool, now time.Time) (OvenToggle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRound {
		return OvenToggle{}, ErrWrongPhase
	}

	if on {
		if s.ovenOn {
			return OvenToggle{}, ErrOvenAlreadyInState
		}
		s.ovenOn = true
		s.ovenStart = now
		s.touch(connID, now)
		return OvenToggle{On: true}, nil
	}

	if !s.ovenOn {
		return OvenToggle{}, ErrOvenAlreadyInState
	}

	elapsed := now.Sub(s.ovenStart)
	graded := make([]*Pizza, 0, len(s.oven))
	for _, pizza := range s.oven {
		pizza.BakingTime += elapsed
		pizza.Status = pizza.grade()
		if pizza.Status == StatusCooked {
			s.completed = append(s.completed, pizza)
		} else {
			s.wasted = append(s.wasted, pizza)
		}
		graded = append(graded, pizza)
	}
	s.oven = nil
	s.ovenOn = false
	s.ovenStart = time.Time{}
	s.touch(connID, now)
	return OvenToggle{Graded: graded}, nil
}

// OvenCount returns the number of pizzas currently baking or waiting in the
// oven.
func (s *Session) OvenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.oven)
}
