package game

import "time"

// PrepareIngredient creates a new token in the room's shared pool. Only
// permitted during round play.
func (s *Session) PrepareIngredient(connID string, t IngredientType, now time.Time) (Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRound {
		return Ingredient{}, ErrWrongPhase
	}
	if _, err := ParseIngredientType(string(t)); err != nil {
		return Ingredient{}, err
	}
	ing := Ingredient{ID: newID(), Type: t, PreparedBy: connID}
	s.pool = append(s.pool, ing)
	s.touch(connID, now)
	return ing, nil
}

// TakeResult reports a claimed ingredient and, for collaborative hand-off,
// the player whose builder buffer received it.
type TakeResult struct {
	Ingredient Ingredient
	HandedTo   string
}

// TakeIngredient atomically claims a token from the pool; exactly one
// claimant can succeed for a given id. From round 2 onward a target player
// may be named, in which case the token lands in that player's builder
// buffer instead of being handed back to the requester.
func (s *Session) TakeIngredient(connID, ingredientID, target string, now time.Time) (TakeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRound {
		return TakeResult{}, ErrWrongPhase
	}

	idx := -1
	for i, ing := range s.pool {
		if ing.ID == ingredientID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return TakeResult{}, ErrIngredientNotFound
	}

	res := TakeResult{Ingredient: s.pool[idx]}
	if target != "" && s.round > 1 {
		p, ok := s.players[target]
		if !ok {
			return TakeResult{}, ErrPlayerNotFound
		}
		p.Builder = append(p.Builder, s.pool[idx])
		res.HandedTo = target
	}

	s.pool = append(s.pool[:idx], s.pool[idx+1:]...)
	s.touch(connID, now)
	return res, nil
}
