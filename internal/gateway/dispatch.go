package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Handler is the inbound side of the engine: one method per client action.
type Handler interface {
	Join(connID, room, name string) error
	Disconnect(connID string)
	PrepareIngredient(connID, ingredientType string)
	TakeIngredient(connID, ingredientID, target string)
	BuildPizza(connID string, ingredientTypes []string, target string)
	MoveToOven(connID, pizzaID string)
	ToggleOven(connID string, on bool)
	StartRound(connID string)
	TimeRequest(connID string)
}

// clientMessage is the inbound wire envelope.
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinPayload struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

type preparePayload struct {
	IngredientType string `json:"ingredient_type"`
}

type takePayload struct {
	IngredientID string `json:"ingredient_id"`
	Target       string `json:"target_sid"`
}

type buildPayload struct {
	Ingredients []string `json:"ingredients"`
	Target      string   `json:"player_sid"`
}

type movePayload struct {
	PizzaID string `json:"pizza_id"`
}

type togglePayload struct {
	State string `json:"state"`
}

// dispatch routes one inbound client message to the handler. Malformed
// messages are logged and dropped; they never take a connection down.
func (cm *ConnectionManager) dispatch(c *Connection, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("malformed client message")
		return
	}

	switch msg.Type {
	case "join":
		var p joinPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.Room == "" {
			log.Warn().Str("connection_id", c.ID).Msg("malformed join payload")
			return
		}
		cm.joinRoom(c, p.Room)
		if err := cm.handler.Join(c.ID, p.Room, p.Name); err != nil {
			cm.leaveRoom(c)
		}

	case "prepare_ingredient":
		var p preparePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return
		}
		cm.handler.PrepareIngredient(c.ID, p.IngredientType)

	case "take_ingredient":
		var p takePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return
		}
		cm.handler.TakeIngredient(c.ID, p.IngredientID, p.Target)

	case "build_pizza":
		var p buildPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return
		}
		cm.handler.BuildPizza(c.ID, p.Ingredients, p.Target)

	case "move_to_oven":
		var p movePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return
		}
		cm.handler.MoveToOven(c.ID, p.PizzaID)

	case "toggle_oven":
		var p togglePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return
		}
		switch p.State {
		case "on":
			cm.handler.ToggleOven(c.ID, true)
		case "off":
			cm.handler.ToggleOven(c.ID, false)
		default:
			log.Warn().Str("connection_id", c.ID).Str("state", p.State).Msg("unknown oven state")
		}

	case "start_round":
		cm.handler.StartRound(c.ID)

	case "time_request":
		cm.handler.TimeRequest(c.ID)

	default:
		log.Warn().Str("connection_id", c.ID).Str("type", msg.Type).Msg("unknown client message type")
	}
}

// leaveRoom detaches a connection from its current room pool without closing
// it, used when a join is rejected by the engine.
func (cm *ConnectionManager) leaveRoom(c *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if pool, ok := cm.roomConnections[c.Room]; ok {
		delete(pool, c)
		if len(pool) == 0 {
			delete(cm.roomConnections, c.Room)
		}
	}
	c.Room = ""
}
