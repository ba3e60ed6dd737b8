package game

// PlayerState is the client-visible view of a player.
type PlayerState struct {
	Name    string       `json:"name"`
	Builder []Ingredient `json:"builder_ingredients"`
}

// Snapshot is the full client-visible game state, sent to a connection when
// it joins a room. Subsequent updates arrive as per-entity delta events.
// Pending orders are deliberately absent: clients only learn about an order
// once it is released.
type Snapshot struct {
	Room                string                 `json:"room"`
	Players             map[string]PlayerState `json:"players"`
	PreparedIngredients []Ingredient           `json:"prepared_ingredients"`
	BuiltPizzas         []Pizza                `json:"built_pizzas"`
	Oven                []Pizza                `json:"oven"`
	CompletedPizzas     []Pizza                `json:"completed_pizzas"`
	WastedPizzas        []Pizza                `json:"wasted_pizzas"`
	CustomerOrders      []Order                `json:"customer_orders"`
	Round               int                    `json:"round"`
	MaxRounds           int                    `json:"max_rounds"`
	CurrentPhase        Phase                  `json:"current_phase"`
	MaxPizzasInOven     int                    `json:"max_pizzas_in_oven"`
	RoundDuration       int                    `json:"round_duration"`
	DebriefDuration     int                    `json:"debrief_duration"`
	OvenOn              bool                   `json:"oven_on"`
}

// Snapshot returns a deep copy of the client-visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Room:                s.room,
		Players:             make(map[string]PlayerState, len(s.players)),
		PreparedIngredients: append([]Ingredient(nil), s.pool...),
		BuiltPizzas:         copyPizzas(s.built),
		Oven:                copyPizzas(s.oven),
		CompletedPizzas:     copyPizzas(s.completed),
		WastedPizzas:        copyPizzas(s.wasted),
		CustomerOrders:      append([]Order(nil), s.openOrders...),
		Round:               s.round,
		MaxRounds:           s.rules.MaxRounds,
		CurrentPhase:        s.phase,
		MaxPizzasInOven:     s.rules.MaxPizzasInOven,
		RoundDuration:       int(s.rules.RoundDuration.Seconds()),
		DebriefDuration:     int(s.rules.DebriefDuration.Seconds()),
		OvenOn:              s.ovenOn,
	}
	for id, p := range s.players {
		snap.Players[id] = PlayerState{
			Name:    p.Name,
			Builder: append([]Ingredient(nil), p.Builder...),
		}
	}
	return snap
}

func copyPizzas(src []*Pizza) []Pizza {
	out := make([]Pizza, 0, len(src))
	for _, p := range src {
		out = append(out, *p)
	}
	return out
}
