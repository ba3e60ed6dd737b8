package game

// RoundResult is the aggregate snapshot computed when a round ends. It is a
// pure function of the session state at that instant; the same snapshot
// always yields the same score.
type RoundResult struct {
	Round            int `json:"round"`
	CompletedPizzas  int `json:"completed_pizzas_count"`
	WastedPizzas     int `json:"wasted_pizzas_count"`
	UnsoldPizzas     int `json:"unsold_pizzas_count"`
	IngredientsLeft  int `json:"ingredients_left_count"`
	FulfilledOrders  int `json:"fulfilled_orders_count,omitempty"`
	UnmatchedPizzas  int `json:"unmatched_pizzas_count,omitempty"`
	RemainingOrders  int `json:"remaining_orders_count,omitempty"`
	Score            int `json:"score"`
}

// Score computes the round score from the aggregate counts.
//
// Rounds 1-2: 10 per completed, -10 per wasted, -5 per unsold, -1 per
// leftover ingredient. Round 3 rewards order fulfilment instead: 20 per
// fulfilled order, -10 per completed-but-unmatched pizza, -15 per order
// never delivered, plus the usual waste penalties.
func (r RoundResult) score() int {
	if r.Round == OrdersRound {
		return 20*r.FulfilledOrders -
			10*r.UnmatchedPizzas -
			10*r.WastedPizzas -
			5*r.UnsoldPizzas -
			r.IngredientsLeft -
			15*r.RemainingOrders
	}
	return 10*r.CompletedPizzas - 10*r.WastedPizzas - 5*r.UnsoldPizzas - r.IngredientsLeft
}
