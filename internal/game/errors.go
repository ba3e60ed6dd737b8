package game

import "errors"

var (
	// Validation errors: the request itself is malformed. Reported to the
	// sender, no state change.
	ErrInvalidIngredientType = errors.New("invalid ingredient type")

	// Not-found errors.
	ErrIngredientNotFound = errors.New("ingredient not available")
	ErrPizzaNotFound      = errors.New("pizza not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrBuilderEmpty       = errors.New("builder is empty")

	// Capacity errors.
	ErrOvenFull = errors.New("oven is full")

	// State-conflict errors: the action is valid but the session is in the
	// wrong state. Always a no-op, never a partial transition.
	ErrWrongPhase         = errors.New("action not allowed in current phase")
	ErrOvenBusy           = errors.New("oven is on")
	ErrOvenAlreadyInState = errors.New("oven already in requested state")
)

// IsConflict reports whether err is a state-conflict error: the kind that is
// silently swallowed when the action is not player-visible.
func IsConflict(err error) bool {
	return errors.Is(err, ErrWrongPhase) ||
		errors.Is(err, ErrOvenBusy) ||
		errors.Is(err, ErrOvenAlreadyInState)
}
