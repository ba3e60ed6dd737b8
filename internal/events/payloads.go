package events

// Wire payload shapes shared by the engine, gateway and fanout packages.
// Domain entities (ingredients, pizzas, orders, snapshots) marshal
// themselves; the structs here cover the event-only payloads.

// PlayerJoinedPayload announces a new room member.
type PlayerJoinedPayload struct {
	ConnID string `json:"conn_id"`
	Name   string `json:"name"`
}

// PlayerLeftPayload announces a departed room member.
type PlayerLeftPayload struct {
	ConnID string `json:"conn_id"`
	Reason string `json:"reason,omitempty"`
}

// IngredientRemovedPayload announces a claimed pool token.
type IngredientRemovedPayload struct {
	IngredientID string `json:"ingredient_id"`
	HandedTo     string `json:"handed_to,omitempty"`
}

// BuilderClearedPayload announces that a player's hand-off buffer was
// consumed by a build.
type BuilderClearedPayload struct {
	ConnID string `json:"player_sid"`
}

// OvenToggledPayload announces an oven state change.
type OvenToggledPayload struct {
	State string `json:"state"`
}

// RoundStartedPayload announces a new round.
type RoundStartedPayload struct {
	Round    int `json:"round"`
	Duration int `json:"duration"`
}

// OrderFulfilledPayload announces a matched customer order.
type OrderFulfilledPayload struct {
	OrderID string `json:"order_id"`
}

// RoomClosingPayload warns still-connected members before teardown.
type RoomClosingPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload carries a caller-scoped failure message.
type ErrorPayload struct {
	Message string `json:"message"`
}
