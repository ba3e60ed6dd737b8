package game

import "time"

// PizzaStatus tracks a pizza through its lifecycle. A pizza with an empty
// status is still buildable/bakeable; a terminal status means it has been
// filed into completed or wasted and is immutable from then on.
type PizzaStatus string

const (
	// Terminal waste statuses.
	StatusInvalid     PizzaStatus = "invalid"
	StatusUnmatched   PizzaStatus = "unmatched"
	StatusUndercooked PizzaStatus = "undercooked"
	StatusBurnt       PizzaStatus = "burnt"

	// Terminal success status.
	StatusCooked PizzaStatus = "cooked"
)

// Pizza is one assembled pizza. BakingTime accumulates across oven on/off
// cycles; grading reads only the cumulative value at eviction.
type Pizza struct {
	ID          string        `json:"pizza_id"`
	Ingredients Counts        `json:"ingredients"`
	BuiltAt     time.Time     `json:"built_at"`
	BakingTime  time.Duration `json:"baking_time"`
	Status      PizzaStatus   `json:"status,omitempty"`
	Type        string        `json:"type,omitempty"`
	OrderID     string        `json:"order_id,omitempty"`
	OvenEntry   time.Time     `json:"-"`
}

// Fulfilled reports whether the pizza was built against a customer order.
func (p *Pizza) Fulfilled() bool {
	return p.OrderID != ""
}

// grade classifies a pizza from its cumulative baking time. Called exactly
// once, when the oven is switched off.
func (p *Pizza) grade() PizzaStatus {
	switch {
	case p.BakingTime < MinBakeTime:
		return StatusUndercooked
	case p.BakingTime <= MaxBakeTime:
		return StatusCooked
	default:
		return StatusBurnt
	}
}

// Recipe names for the two fixed early-round pizzas.
const (
	PizzaTypeBacon     = "bacon"
	PizzaTypePineapple = "pineapple"
)

// classicPizzaType returns the recipe name for a valid rounds-1-2 ingredient
// vector, or "" if the combination is not a recognized pizza.
func classicPizzaType(c Counts) string {
	if c.Base != 1 || c.Sauce != 1 {
		return ""
	}
	switch {
	case c.Ham == 4 && c.Pineapple == 0:
		return PizzaTypeBacon
	case c.Ham == 2 && c.Pineapple == 2:
		return PizzaTypePineapple
	default:
		return ""
	}
}
