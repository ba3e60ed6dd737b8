package game

import "time"

// Rules holds the per-session gameplay tunables. Every session created by the
// registry gets a copy, so changing the configured rules never affects rooms
// that are already running.
type Rules struct {
	MaxRounds       int           `yaml:"max_rounds"`
	RoundDuration   time.Duration `yaml:"round_duration"`
	DebriefDuration time.Duration `yaml:"debrief_duration"`
	MaxPizzasInOven int           `yaml:"max_pizzas_in_oven"`

	// Round 3 customer order generation.
	OrderCount        int           `yaml:"order_count"`
	OrderWindowMargin time.Duration `yaml:"order_window_margin"`
	OrderReleaseBatch int           `yaml:"order_release_batch"`
}

// DefaultRules returns the classic three-round game configuration.
func DefaultRules() Rules {
	return Rules{
		MaxRounds:         3,
		RoundDuration:     420 * time.Second,
		DebriefDuration:   180 * time.Second,
		MaxPizzasInOven:   3,
		OrderCount:        50,
		OrderWindowMargin: 45 * time.Second,
		OrderReleaseBatch: 10,
	}
}

// OrdersRound is the round in which customer orders drive pizza building.
const OrdersRound = 3

// Bake grading thresholds on cumulative baking time.
const (
	MinBakeTime = 30 * time.Second
	MaxBakeTime = 45 * time.Second
)
