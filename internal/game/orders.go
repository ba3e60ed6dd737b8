package game

import (
	"math/rand"
	"time"
)

// Order is a round-3 customer order. ArrivalTime is an offset from round
// start; the order sits in the pending set until that offset elapses, then
// becomes an open order eligible for matching.
type Order struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	Ingredients Counts        `json:"ingredients"`
	ArrivalTime time.Duration `json:"arrival_time"`
}

// recipe is one entry in the fixed customer-order catalog.
type recipe struct {
	Type        string
	Ingredients Counts
}

// orderCatalog is the fixed set of recipes customer orders are drawn from,
// with replacement.
var orderCatalog = []recipe{
	{Type: "plain", Ingredients: Counts{Base: 1, Sauce: 1}},
	{Type: "light ham", Ingredients: Counts{Base: 1, Sauce: 1, Ham: 1}},
	{Type: "light pineapple", Ingredients: Counts{Base: 1, Sauce: 1, Pineapple: 1}},
	{Type: "ham", Ingredients: Counts{Base: 1, Sauce: 1, Ham: 4}},
	{Type: "pineapple", Ingredients: Counts{Base: 1, Sauce: 1, Pineapple: 4}},
	{Type: "ham & pineapple", Ingredients: Counts{Base: 1, Sauce: 1, Ham: 2, Pineapple: 2}},
	{Type: "heavy ham", Ingredients: Counts{Base: 1, Sauce: 1, Ham: 6}},
	{Type: "heavy pineapple", Ingredients: Counts{Base: 1, Sauce: 1, Pineapple: 6}},
}

// GenerateOrders draws n orders from the catalog with randomized types and
// arrival times evenly spaced across [0, roundDuration-margin]. The margin
// keeps the last order completable before the round ends.
func GenerateOrders(roundDuration, margin time.Duration, n int) []Order {
	if n <= 0 {
		return nil
	}
	window := roundDuration - margin
	if window < 0 {
		window = 0
	}
	orders := make([]Order, 0, n)
	for i := 0; i < n; i++ {
		r := orderCatalog[rand.Intn(len(orderCatalog))]
		var arrival time.Duration
		if n > 1 {
			arrival = time.Duration(i) * window / time.Duration(n-1)
		}
		orders = append(orders, Order{
			ID:          newID(),
			Type:        r.Type,
			Ingredients: r.Ingredients,
			ArrivalTime: arrival,
		})
	}
	return orders
}
