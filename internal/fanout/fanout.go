package fanout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/kanbanpizza/server/internal/events"
)

// Config holds NATS fan-out settings.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns the default fan-out configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "kitchen.rooms",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// LocalBroadcaster re-delivers replicated events to this process's own
// connections. Implemented by the websocket gateway.
type LocalBroadcaster interface {
	BroadcastToRoom(room string, event *events.Event)
}

// envelope wraps a room event with its originating instance so a process
// can skip its own publications.
type envelope struct {
	Origin string        `json:"origin"`
	Room   string        `json:"room"`
	Event  *events.Event `json:"event"`
}

// Fanout replicates room events between server processes over NATS. Room
// state stays process-local; only the broadcast stream is shared, so every
// co-located instance delivers the same events to its own connections.
type Fanout struct {
	nc         *nats.Conn
	config     Config
	instanceID string
	sub        *nats.Subscription
}

// New connects to NATS for event replication.
func New(cfg Config) (*Fanout, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Fanout{
		nc:         nc,
		config:     cfg,
		instanceID: uuid.New().String()[:8],
	}, nil
}

// PublishRoomEvent replicates a room event to other processes.
func (f *Fanout) PublishRoomEvent(room string, event *events.Event) error {
	data, err := json.Marshal(envelope{Origin: f.instanceID, Room: room, Event: event})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", f.config.SubjectPrefix, room)
	if err := f.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe starts re-broadcasting events published by other instances to
// the local broadcaster.
func (f *Fanout) Subscribe(local LocalBroadcaster) error {
	subject := fmt.Sprintf("%s.>", f.config.SubjectPrefix)
	sub, err := f.nc.Subscribe(subject, func(msg *nats.Msg) {
		var env envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("malformed fan-out message")
			return
		}
		if env.Origin == f.instanceID || env.Event == nil {
			return
		}
		local.BroadcastToRoom(env.Room, env.Event)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	f.sub = sub
	log.Info().Str("subject", subject).Str("instance", f.instanceID).Msg("fan-out subscription active")
	return nil
}

// Close drains the subscription and closes the NATS connection.
func (f *Fanout) Close() {
	if f.sub != nil {
		_ = f.sub.Drain()
	}
	f.nc.Close()
}
