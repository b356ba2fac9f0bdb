package syncevent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spyroom/internal/events"
	"spyroom/internal/models"
	"spyroom/internal/outbox"
)

// ErrRoomNotFound is returned when the target room does not resolve
var ErrRoomNotFound = errors.New("room not found")

// Repository implements sync event data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new syncevent repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// ArmSyncEvent overwrites the room's sync event. Re-arming replaces the
// window wholesale, so at most one event is ever active per room.
func (r *Repository) ArmSyncEvent(ctx context.Context, roomID uuid.UUID, endTime time.Time) (*models.SyncEvent, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin arm sync event: %w", err)
	}
	defer tx.Rollback(ctx)

	var armedAt time.Time
	ev := &models.SyncEvent{Active: true}
	err = tx.QueryRow(ctx,
		`UPDATE rooms SET sync_active = TRUE, sync_end_time = $2, updated_at = now()
		 WHERE id = $1 RETURNING sync_end_time, updated_at`,
		roomID, endTime,
	).Scan(&ev.EndTime, &armedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("arm sync event: %w", err)
	}

	err = outbox.Insert(ctx, tx, roomID, events.TypeSyncEventArmed, events.SyncEventArmedPayload{
		RoomID:  roomID.String(),
		ArmedAt: armedAt,
		EndTime: ev.EndTime,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit arm sync event: %w", err)
	}
	return ev, nil
}
