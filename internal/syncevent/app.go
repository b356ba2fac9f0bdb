package syncevent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"spyroom/internal/models"
)

// DefaultDuration is the broadcast window when the caller doesn't pick one.
const DefaultDuration = 10 * time.Second

// EventsRepository defines what the app layer needs from the repository
type EventsRepository interface {
	ArmSyncEvent(ctx context.Context, roomID uuid.UUID, endTime time.Time) (*models.SyncEvent, error)
}

// App arms room-wide synchronized events. Nothing ever clears the stored
// Active flag; expiry is decided by each observer through Live.
type App struct {
	repo EventsRepository
}

// NewApp creates a new syncevent App
func NewApp(repo EventsRepository) *App {
	return &App{
		repo: repo,
	}
}

// Trigger arms the room's sync event for the given window, overwriting any
// prior event. A non-positive duration falls back to DefaultDuration.
func (a *App) Trigger(ctx context.Context, roomID uuid.UUID, duration time.Duration) (*models.SyncEvent, error) {
	if duration <= 0 {
		duration = DefaultDuration
	}

	ev, err := a.repo.ArmSyncEvent(ctx, roomID, time.Now().Add(duration))
	if err != nil {
		return nil, fmt.Errorf("failed to trigger sync event: %w", err)
	}

	log.Info().
		Str("room_id", roomID.String()).
		Time("end_time", ev.EndTime).
		Msg("sync event armed")
	return ev, nil
}

// Live reports whether an observer at the given instant should show the
// event. EndTime is the source of truth: once the local clock passes it the
// overlay goes away even though no one writes Active back to false.
func Live(ev *models.SyncEvent, now time.Time) bool {
	return ev != nil && ev.Active && now.Before(ev.EndTime)
}
