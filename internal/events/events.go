package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type identifies a room event on the wire.
type Type string

const (
	TypeGameState          Type = "game_state"
	TypePlayerJoined       Type = "player_joined"
	TypePlayerLeft         Type = "player_left"
	TypeIngredientPrepared Type = "ingredient_prepared"
	TypeIngredientRemoved  Type = "ingredient_removed"
	TypeBuilderCleared     Type = "clear_shared_builder"
	TypePizzaBuilt         Type = "pizza_built"
	TypeBuildError         Type = "build_error"
	TypePizzaMovedToOven   Type = "pizza_moved_to_oven"
	TypeOvenToggled        Type = "oven_toggled"
	TypeOvenError          Type = "oven_error"
	TypeRoundStarted       Type = "round_started"
	TypeNewOrder           Type = "new_order"
	TypeOrderFulfilled     Type = "order_fulfilled"
	TypeRoundEnded         Type = "round_ended"
	TypeGameReset          Type = "game_reset"
	TypeGameOver           Type = "game_over"
	TypeRoomClosing        Type = "room_closing"
	TypeTimeResponse       Type = "time_response"
	TypeError              Type = "error"
)

// Event is the envelope broadcast to room members and replicated across
// server processes by the fanout layer.
type Event struct {
	ID        string          `json:"id"`
	Room      string          `json:"room"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New wraps a payload in an event envelope. Marshal failures indicate a
// programming error in the payload type and surface to the caller.
func New(room string, t Type, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New().String(),
		Room:      room,
		Type:      t,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}
