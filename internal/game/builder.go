package game

import "time"

// BuildResult is the outcome of a build attempt that passed request
// validation. Wasted builds are recorded, not dropped: the pizza goes
// straight to the wasted list with its status explaining why.
type BuildResult struct {
	Pizza          *Pizza
	Wasted         bool
	FulfilledOrder *Order
	ClearedBuilder string
}

// BuildPizza assembles a pizza from an explicit ingredient list or, when no
// list is given, from the target player's builder buffer (the requester's
// own buffer by default).
//
// Rounds 1-2 validate against the two fixed recipes; any other combination
// is wasted as invalid. Round 3 instead matches the count vector against the
// open customer orders by exact equality; first match wins, no match wastes
// the pizza as unmatched.
func (s *Session) BuildPizza(connID string, explicit []IngredientType, target string, now time.Time) (BuildResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRound {
		return BuildResult{}, ErrWrongPhase
	}

	var (
		counts      Counts
		fromBuilder string
	)
	if len(explicit) > 0 {
		for _, t := range explicit {
			if _, err := ParseIngredientType(string(t)); err != nil {
				return BuildResult{}, err
			}
			counts.Add(t)
		}
	} else {
		if target == "" {
			target = connID
		}
		p, ok := s.players[target]
		if !ok {
			return BuildResult{}, ErrPlayerNotFound
		}
		if len(p.Builder) == 0 {
			return BuildResult{}, ErrBuilderEmpty
		}
		counts = CountIngredients(p.Builder)
		fromBuilder = target
	}

	pizza := &Pizza{ID: newID(), Ingredients: counts, BuiltAt: now}
	res := BuildResult{Pizza: pizza}

	if s.round < OrdersRound {
		if t := classicPizzaType(counts); t != "" {
			pizza.Type = t
			s.built = append(s.built, pizza)
		} else {
			pizza.Status = StatusInvalid
			s.wasted = append(s.wasted, pizza)
			res.Wasted = true
		}
	} else if order, ok := s.matchOrderLocked(counts); ok {
		pizza.Type = order.Type
		pizza.OrderID = order.ID
		s.built = append(s.built, pizza)
		res.FulfilledOrder = &order
	} else {
		pizza.Status = StatusUnmatched
		s.wasted = append(s.wasted, pizza)
		res.Wasted = true
	}

	if fromBuilder != "" {
		s.players[fromBuilder].Builder = nil
		res.ClearedBuilder = fromBuilder
	}

	s.touch(connID, now)
	return res, nil
}

// matchOrderLocked removes and returns the first open order whose
// ingredient vector equals counts. Callers must hold s.mu.
func (s *Session) matchOrderLocked(counts Counts) (Order, bool) {
	for i, order := range s.openOrders {
		if order.Ingredients == counts {
			s.openOrders = append(s.openOrders[:i], s.openOrders[i+1:]...)
			return order, true
		}
	}
	return Order{}, false
}
