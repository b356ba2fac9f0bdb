package room

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

// Repository implements room data access on Postgres. State transitions and
// their outbox events commit in one transaction, so no observer can see a
// partially updated room.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new rooms repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// CreateRoom creates a waiting room seeded with the creator.
func (r *Repository) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create room: %w", err)
	}
	defer tx.Rollback(ctx)

	room := &models.Room{
		ID:     req.ID,
		Status: models.RoomStatusWaiting,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO rooms (id, status) VALUES ($1, $2) RETURNING created_at, updated_at`,
		req.ID, models.RoomStatusWaiting,
	).Scan(&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	player := models.Participant{ID: req.CreatorID, Role: models.RoleUnassigned}
	err = tx.QueryRow(ctx,
		`INSERT INTO room_players (room_id, participant_id) VALUES ($1, $2) RETURNING joined_at`,
		req.ID, req.CreatorID,
	).Scan(&player.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("insert creator: %w", err)
	}
	room.Players = []models.Participant{player}

	err = outbox.Insert(ctx, tx, req.ID, events.TypeRoomCreated, events.RoomCreatedPayload{
		RoomID:    req.ID.String(),
		CreatorID: req.CreatorID,
		CreatedAt: room.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create room: %w", err)
	}
	return room, nil
}

// GetRoom retrieves a room with its players in join order.
func (r *Repository) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room := &models.Room{ID: id}
	var syncActive bool
	var syncEnd *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT status, sync_active, sync_end_time, created_at, updated_at FROM rooms WHERE id = $1`,
		id,
	).Scan(&room.Status, &syncActive, &syncEnd, &room.CreatedAt, &room.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}
	if syncEnd != nil {
		room.SyncEvent = &models.SyncEvent{Active: syncActive, EndTime: *syncEnd}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT participant_id, role, joined_at FROM room_players
		 WHERE room_id = $1 ORDER BY joined_at, participant_id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.Role, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		room.Players = append(room.Players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return room, nil
}

// AddPlayer inserts the participant unless already present. The ON CONFLICT
// guard is what makes joinRoom idempotent under concurrent retries.
func (r *Repository) AddPlayer(ctx context.Context, roomID uuid.UUID, participantID string) (*models.Room, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin join: %w", err)
	}
	defer tx.Rollback(ctx)

	var status models.RoomStatus
	err = tx.QueryRow(ctx, `SELECT status FROM rooms WHERE id = $1`, roomID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO room_players (room_id, participant_id)
		 VALUES ($1, $2) ON CONFLICT (room_id, participant_id) DO NOTHING`,
		roomID, participantID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert player: %w", err)
	}

	if tag.RowsAffected() > 0 {
		var joinedAt time.Time
		var count int
		err = tx.QueryRow(ctx,
			`SELECT joined_at, (SELECT count(*) FROM room_players WHERE room_id = $1)
			 FROM room_players WHERE room_id = $1 AND participant_id = $2`,
			roomID, participantID,
		).Scan(&joinedAt, &count)
		if err != nil {
			return nil, fmt.Errorf("select joined player: %w", err)
		}

		err = outbox.Insert(ctx, tx, roomID, events.TypePlayerJoined, events.PlayerJoinedPayload{
			RoomID:        roomID.String(),
			ParticipantID: participantID,
			JoinedAt:      joinedAt,
			PlayerCount:   count,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit join: %w", err)
	}
	return r.GetRoom(ctx, roomID)
}

// AssignRoles commits WAITING -> PLAYING and the role split in one
// transaction. The status predicate is the compare-and-swap: if another
// caller already started the game, zero rows update and the race loser gets
// ErrInvalidState with nothing written.
func (r *Repository) AssignRoles(ctx context.Context, req AssignRolesRequest) (*models.Room, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin start game: %w", err)
	}
	defer tx.Rollback(ctx)

	var startedAt time.Time
	err = tx.QueryRow(ctx,
		`UPDATE rooms SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3 RETURNING updated_at`,
		req.RoomID, models.RoomStatusPlaying, models.RoomStatusWaiting,
	).Scan(&startedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("update room status: %w", err)
	}

	rows, err := tx.Query(ctx,
		`UPDATE room_players
		 SET role = CASE WHEN participant_id = $2 THEN $3 ELSE $4 END
		 WHERE room_id = $1
		 RETURNING participant_id, role`,
		req.RoomID, req.SpyID, models.RoleSpy, models.RoleCitizen,
	)
	if err != nil {
		return nil, fmt.Errorf("assign roles: %w", err)
	}

	var assignments []events.RoleAssignment
	for rows.Next() {
		var a events.RoleAssignment
		if err := rows.Scan(&a.ParticipantID, &a.Role); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}

	err = outbox.Insert(ctx, tx, req.RoomID, events.TypeGameStarted, events.GameStartedPayload{
		RoomID:      req.RoomID.String(),
		StartedAt:   startedAt,
		PlayerCount: len(assignments),
		Assignments: assignments,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit start game: %w", err)
	}
	return r.GetRoom(ctx, req.RoomID)
}
