package room

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"spyroom/internal/models"
)

// RoomsRepository defines what the app layer needs from the repository
type RoomsRepository interface {
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	AddPlayer(ctx context.Context, roomID uuid.UUID, participantID string) (*models.Room, error)
	AssignRoles(ctx context.Context, req AssignRolesRequest) (*models.Room, error)
}

// App handles room lifecycle business logic
type App struct {
	repo RoomsRepository

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewApp creates a new room App with its own seeded rng.
func NewApp(repo RoomsRepository) *App {
	src := rand.NewSource(time.Now().UnixNano())
	return &App{
		repo: repo,
		rng:  rand.New(src),
	}
}

// CreateRoom allocates a new waiting room containing exactly the creator,
// unassigned.
func (a *App) CreateRoom(ctx context.Context, creatorID string) (*models.Room, error) {
	if creatorID == "" {
		return nil, fmt.Errorf("missing creator id: %w", ErrInvalidInput)
	}

	room, err := a.repo.CreateRoom(ctx, CreateRoomRequest{
		ID:        uuid.New(),
		CreatorID: creatorID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	log.Info().
		Str("room_id", room.ID.String()).
		Str("creator_id", creatorID).
		Msg("room created")
	return room, nil
}

// GetRoom retrieves a room by ID
func (a *App) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// JoinRoom appends the participant to the room if not already present.
// Joining twice is a no-op, never a duplicate membership.
func (a *App) JoinRoom(ctx context.Context, roomID uuid.UUID, participantID string) (*models.Room, error) {
	if participantID == "" {
		return nil, fmt.Errorf("missing participant id: %w", ErrInvalidInput)
	}

	room, err := a.repo.AddPlayer(ctx, roomID, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	log.Info().
		Str("room_id", roomID.String()).
		Str("participant_id", participantID).
		Int("players", len(room.Players)).
		Msg("participant joined room")
	return room, nil
}

// StartGame transitions a waiting, non-empty room to PLAYING, drawing exactly
// one spy uniformly at random; everyone else becomes a citizen. The commit is
// conditional on the room still being WAITING, so concurrent callers cannot
// produce two competing assignments — the loser gets ErrInvalidState.
func (a *App) StartGame(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	room, err := a.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room.Status != models.RoomStatusWaiting {
		return nil, fmt.Errorf("start game in status %s: %w", room.Status, ErrInvalidState)
	}
	if len(room.Players) == 0 {
		return nil, fmt.Errorf("start game: %w", ErrEmptyRoom)
	}

	spyID := a.drawSpy(room.Players)

	updated, err := a.repo.AssignRoles(ctx, AssignRolesRequest{
		RoomID: roomID,
		SpyID:  spyID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	log.Info().
		Str("room_id", roomID.String()).
		Int("players", len(updated.Players)).
		Msg("game started")
	return updated, nil
}

// drawSpy picks one participant uniformly. A single Intn draw over the join
// ordering is exactly uniform; a comparator-based random sort is not and must
// not be reintroduced here.
func (a *App) drawSpy(players []models.Participant) string {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return players[a.rng.Intn(len(players))].ID
}
