package chat

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"spyroom/internal/models"
)

// Delivery delay bounds, inclusive on both ends.
const (
	MinDelay = 3000 * time.Millisecond
	MaxDelay = 8000 * time.Millisecond
)

// MessagesRepository defines what the app layer needs from the repository
type MessagesRepository interface {
	CreateMessage(ctx context.Context, req CreateMessageRequest) (*models.Message, error)
	ListVisibleMessages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error)
}

// Waker lets the app nudge the release scheduler after a write, in case the
// new message carries the earliest pending deadline.
type Waker interface {
	Wake()
}

// App handles delayed message delivery. Messages are written immediately with
// a withheld-visibility instant rather than deferred: a process restart
// mid-delay loses nothing, and visibility stays a pure function of stored
// data plus time.
type App struct {
	repo  MessagesRepository
	waker Waker

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewApp creates a new chat App with its own seeded rng. waker may be nil.
func NewApp(repo MessagesRepository, waker Waker) *App {
	src := rand.NewSource(time.Now().UnixNano())
	return &App{
		repo:  repo,
		waker: waker,
		rng:   rand.New(src),
	}
}

// SendMessage records a message whose visibility is withheld from every
// observer, the sender included, for a uniform 3000–8000ms after the
// server-assigned creation time. The caller never blocks on the delay; a
// write failure is returned, not swallowed, so the UI can offer a retry.
func (a *App) SendMessage(ctx context.Context, roomID uuid.UUID, senderID, body string) (*models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("empty message body: %w", ErrInvalidInput)
	}
	if senderID == "" {
		return nil, fmt.Errorf("missing sender id: %w", ErrInvalidInput)
	}

	msg, err := a.repo.CreateMessage(ctx, CreateMessageRequest{
		ID:       uuid.New(),
		RoomID:   roomID,
		SenderID: senderID,
		Body:     body,
		Delay:    a.drawDelay(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	if a.waker != nil {
		a.waker.Wake()
	}

	log.Info().
		Str("message_id", msg.ID.String()).
		Str("room_id", roomID.String()).
		Dur("delay", msg.VisibleAfter.Sub(msg.CreatedAt)).
		Msg("message queued for delayed release")
	return msg, nil
}

// ListMessages returns the room's currently visible messages in ascending
// creation order.
func (a *App) ListMessages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error) {
	msgs, err := a.repo.ListVisibleMessages(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	SortByCreated(msgs)
	return msgs, nil
}

// drawDelay picks a release delay uniformly over [MinDelay, MaxDelay],
// millisecond granularity, both bounds inclusive.
func (a *App) drawDelay() time.Duration {
	span := (MaxDelay-MinDelay)/time.Millisecond + 1
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return MinDelay + time.Duration(a.rng.Int63n(int64(span)))*time.Millisecond
}
