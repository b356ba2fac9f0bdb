package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"spyroom/internal/events"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string        // e.g., "room.events.>"
	MaxDeliver    int           // Max delivery attempts
	AckWait       time.Duration // How long to wait for ack
	MaxAckPending int           // Max messages pending ack
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultJetStreamConsumerConfig returns default JetStream consumer configuration
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "ROOM_EVENTS",
		ConsumerName:  "room-gateway",
		SubjectFilter: "room.events.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Broadcaster is the consumer's view of the connection manager: room-wide
// fan-out plus targeted delivery to a single participant.
type Broadcaster interface {
	BroadcastToRoom(roomID uuid.UUID, event *RoomEvent)
	BroadcastToParticipant(roomID uuid.UUID, participantID string, event *RoomEvent)
}

// EventConsumer consumes room events from JetStream and fans them out to
// WebSocket clients. Role assignments never go out as a room broadcast.
type EventConsumer struct {
	broadcaster Broadcaster
	nc          *nats.Conn
	js          jetstream.JetStream
	consumer    jetstream.Consumer
	config      JetStreamConsumerConfig
}

// NewEventConsumer creates a new JetStream event consumer
func NewEventConsumer(cm *ConnectionManager, config JetStreamConsumerConfig) (*EventConsumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
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

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := &EventConsumer{
		broadcaster: cm,
		nc:          nc,
		js:          js,
		config:      config,
	}

	if err := ec.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return ec, nil
}

// ensureConsumer creates or gets the JetStream consumer
func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          ec.config.ConsumerName,
		Durable:       ec.config.ConsumerName,
		Description:   "Room gateway WebSocket consumer",
		FilterSubject: ec.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ec.config.MaxDeliver,
		AckWait:       ec.config.AckWait,
		MaxAckPending: ec.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, ec.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", ec.config.ConsumerName).
			Str("stream", ec.config.StreamName).
			Msg("created JetStream consumer")
	} else {
		log.Info().
			Str("consumer", ec.config.ConsumerName).
			Str("stream", ec.config.StreamName).
			Msg("using existing JetStream consumer")
	}

	ec.consumer = consumer
	return nil
}

// Start begins consuming events from JetStream
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := ec.processMessage(msg); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process message")
				if nakErr := msg.Nak(); nakErr != nil {
					log.Error().Err(nakErr).Msg("failed to NAK message")
				}
			} else {
				if ackErr := msg.Ack(); ackErr != nil {
					log.Error().Err(ackErr).Msg("failed to ACK message")
				}
			}
		}
	}
}

// processMessage processes a single JetStream message
func (ec *EventConsumer) processMessage(msg jetstream.Msg) error {
	var envelope struct {
		EventID   string          `json:"eventId"`
		EventType string          `json:"eventType"`
		RoomID    string          `json:"roomId"`
		Timestamp time.Time       `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(msg.Data(), &envelope); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	roomID, err := uuid.Parse(envelope.RoomID)
	if err != nil {
		return fmt.Errorf("parse room ID: %w", err)
	}

	if envelope.EventType == events.TypeGameStarted {
		return ec.fanOutGameStarted(roomID, envelope.EventID, envelope.Timestamp, envelope.Payload)
	}

	wsEvent, err := convertToRoomEvent(envelope.EventID, envelope.EventType, envelope.RoomID, envelope.Timestamp, envelope.Payload)
	if err != nil {
		return fmt.Errorf("convert to WebSocket event: %w", err)
	}

	ec.broadcaster.BroadcastToRoom(roomID, wsEvent)

	log.Debug().
		Str("event_id", envelope.EventID).
		Str("room_id", envelope.RoomID).
		Str("event_type", envelope.EventType).
		Msg("event broadcasted to WebSocket clients")

	return nil
}

// fanOutGameStarted splits a GameStarted bus event into one public notice for
// the room and one private RoleAssigned event per participant. The raw
// assignment list never reaches a client socket.
func (ec *EventConsumer) fanOutGameStarted(roomID uuid.UUID, eventID string, ts time.Time, payload json.RawMessage) error {
	var started events.GameStartedPayload
	if err := json.Unmarshal(payload, &started); err != nil {
		return fmt.Errorf("unmarshal GameStarted payload: %w", err)
	}

	notice, err := json.Marshal(GameStartedNotice{
		RoomID:      started.RoomID,
		StartedAt:   started.StartedAt,
		PlayerCount: started.PlayerCount,
	})
	if err != nil {
		return fmt.Errorf("marshal GameStarted notice: %w", err)
	}
	ec.broadcaster.BroadcastToRoom(roomID, &RoomEvent{
		ID:        eventID,
		RoomID:    started.RoomID,
		Type:      EventTypeGameStarted,
		Timestamp: ts,
		Data:      notice,
	})

	for _, a := range started.Assignments {
		data, err := json.Marshal(RoleAssignedNotice{RoomID: started.RoomID, Role: a.Role})
		if err != nil {
			return fmt.Errorf("marshal RoleAssigned notice: %w", err)
		}
		ec.broadcaster.BroadcastToParticipant(roomID, a.ParticipantID, &RoomEvent{
			ID:        uuid.New().String(),
			RoomID:    started.RoomID,
			Type:      EventTypeRoleAssigned,
			Timestamp: ts,
			Data:      data,
		})
	}

	log.Info().
		Str("room_id", started.RoomID).
		Int("players", started.PlayerCount).
		Msg("game start fanned out with private roles")
	return nil
}

// convertToRoomEvent maps a bus event type to its client-facing event.
func convertToRoomEvent(eventID, eventType, roomID string, ts time.Time, payload json.RawMessage) (*RoomEvent, error) {
	var wsEventType EventType
	switch eventType {
	case events.TypeRoomCreated:
		wsEventType = EventTypeRoomCreated
	case events.TypePlayerJoined:
		wsEventType = EventTypePlayerJoined
	case events.TypeMessagePosted:
		wsEventType = EventTypeMessagePosted
	case events.TypeMessageReleased:
		wsEventType = EventTypeMessageReleased
	case events.TypeSyncEventArmed:
		wsEventType = EventTypeSyncEventArmed
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	return &RoomEvent{
		ID:        eventID,
		RoomID:    roomID,
		Type:      wsEventType,
		Timestamp: ts,
		Data:      payload,
	}, nil
}

// Stop gracefully shuts down the event consumer
func (ec *EventConsumer) Stop() error {
	log.Info().Msg("stopping event consumer")

	if ec.nc != nil {
		ec.nc.Close()
	}

	return nil
}
