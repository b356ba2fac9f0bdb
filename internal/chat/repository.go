package chat

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

// Repository implements message data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new messages repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// CreateMessage stores a message with server-assigned created_at and a
// visible_after derived from it, in one statement — there is no window in
// which a partially formed message exists.
func (r *Repository) CreateMessage(ctx context.Context, req CreateMessageRequest) (*models.Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin send message: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, req.RoomID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check room: %w", err)
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	msg := &models.Message{
		ID:       req.ID,
		RoomID:   req.RoomID,
		SenderID: req.SenderID,
		Body:     req.Body,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO messages (id, room_id, sender_id, body, created_at, visible_after)
		 VALUES ($1, $2, $3, $4, now(), now() + $5 * interval '1 millisecond')
		 RETURNING created_at, visible_after`,
		req.ID, req.RoomID, req.SenderID, req.Body, req.Delay.Milliseconds(),
	).Scan(&msg.CreatedAt, &msg.VisibleAfter)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	// Announce existence only. Body and sender stay out of the event so the
	// pending message reveals nothing before its release.
	err = outbox.Insert(ctx, tx, req.RoomID, events.TypeMessagePosted, events.MessagePostedPayload{
		MessageID:    msg.ID.String(),
		RoomID:       msg.RoomID.String(),
		CreatedAt:    msg.CreatedAt,
		VisibleAfter: msg.VisibleAfter,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit send message: %w", err)
	}
	return msg, nil
}

// ListVisibleMessages returns the room's messages whose release instant has
// passed, ordered by the created_at sort key rather than any delivery order.
func (r *Repository) ListVisibleMessages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, room_id, sender_id, body, created_at, visible_after, released
		 FROM messages
		 WHERE room_id = $1 AND visible_after <= now()
		 ORDER BY created_at, id`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Body, &m.CreatedAt, &m.VisibleAfter, &m.Released); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// NextRelease returns the earliest pending visible_after instant, or nil when
// nothing is queued.
func (r *Repository) NextRelease(ctx context.Context) (*time.Time, error) {
	var next time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT visible_after FROM messages WHERE NOT released ORDER BY visible_after LIMIT 1`,
	).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select next release: %w", err)
	}
	return &next, nil
}

// ClaimDueMessages marks due messages as released and emits their
// MessageReleased outbox events in the same transaction. SKIP LOCKED keeps
// concurrent scheduler instances from double-claiming a message.
func (r *Repository) ClaimDueMessages(ctx context.Context, limit int32) ([]models.Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`UPDATE messages SET released = TRUE
		 WHERE id IN (
		     SELECT id FROM messages
		     WHERE NOT released AND visible_after <= now()
		     ORDER BY visible_after
		     LIMIT $1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, room_id, sender_id, body, created_at, visible_after, released`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due messages: %w", err)
	}

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Body, &m.CreatedAt, &m.VisibleAfter, &m.Released); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan claimed message: %w", err)
		}
		msgs = append(msgs, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claimed messages: %w", err)
	}

	for _, m := range msgs {
		err := outbox.Insert(ctx, tx, m.RoomID, events.TypeMessageReleased, events.MessageReleasedPayload{
			MessageID:    m.ID.String(),
			RoomID:       m.RoomID.String(),
			SenderID:     m.SenderID,
			Body:         m.Body,
			CreatedAt:    m.CreatedAt,
			VisibleAfter: m.VisibleAfter,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return msgs, nil
}
