package main

import (
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"spyroom/internal/chat"
	"spyroom/internal/delivery"
	"spyroom/internal/gateway"
	"spyroom/internal/httpapi"
	"spyroom/internal/outbox"
	"spyroom/internal/room"
	"spyroom/internal/syncevent"
)

// Services holds every wired component of the server.
type Services struct {
	API          *httpapi.Handlers
	WS           *gateway.WebSocketHandler
	ConnManager  *gateway.ConnectionManager
	Consumer     *gateway.EventConsumer
	Scheduler    *delivery.Scheduler
	OutboxWorker *outbox.Worker
}

func setupServices(pool *pgxpool.Pool, db *sql.DB, cfg *Config) (*Services, error) {
	// Database layer → Repository layer → App layer → HTTP layer

	// Rooms
	roomRepo := room.NewRepository(pool)
	roomApp := room.NewApp(roomRepo)

	// Messages. The scheduler doubles as the chat app's waker so a freshly
	// written message can shorten the current sleep.
	chatRepo := chat.NewRepository(pool)
	scheduler := delivery.NewScheduler(chatRepo, cfg.Scheduler.BatchSize)
	chatApp := chat.NewApp(chatRepo, scheduler)

	// Synchronized events
	eventRepo := syncevent.NewRepository(pool)
	eventApp := syncevent.NewApp(eventRepo)

	// Outbox worker drains committed transitions to JetStream
	jsCfg := outbox.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATS.URL
	publisher, err := outbox.NewJetStreamPublisher(jsCfg)
	if err != nil {
		return nil, err
	}
	worker := outbox.NewWorker(db, publisher, outbox.DefaultConfig(),
		slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// Gateway fans bus events out to WebSocket clients
	connManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	consumerCfg := gateway.DefaultJetStreamConsumerConfig()
	consumerCfg.URL = cfg.NATS.URL
	consumerCfg.ReconnectWait = 2 * time.Second
	consumer, err := gateway.NewEventConsumer(connManager, consumerCfg)
	if err != nil {
		publisher.Close()
		return nil, err
	}

	return &Services{
		API:          httpapi.NewHandlers(roomApp, chatApp, eventApp),
		WS:           gateway.NewWebSocketHandler(connManager),
		ConnManager:  connManager,
		Consumer:     consumer,
		Scheduler:    scheduler,
		OutboxWorker: worker,
	}, nil
}
