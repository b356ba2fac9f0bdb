package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"spyroom/internal/models"
)

// fakeRoomsRepo is an in-memory RoomsRepository mirroring the store's
// conditional-update semantics.
type fakeRoomsRepo struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*models.Room
}

func newFakeRoomsRepo() *fakeRoomsRepo {
	return &fakeRoomsRepo{rooms: make(map[uuid.UUID]*models.Room)}
}

func (f *fakeRoomsRepo) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &models.Room{
		ID:     req.ID,
		Status: models.RoomStatusWaiting,
		Players: []models.Participant{
			{ID: req.CreatorID, Role: models.RoleUnassigned, JoinedAt: time.Now()},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.rooms[req.ID] = r
	return copyRoom(r), nil
}

func (f *fakeRoomsRepo) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return copyRoom(r), nil
}

func (f *fakeRoomsRepo) AddPlayer(ctx context.Context, roomID uuid.UUID, participantID string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	for _, p := range r.Players {
		if p.ID == participantID {
			return copyRoom(r), nil
		}
	}
	r.Players = append(r.Players, models.Participant{
		ID:       participantID,
		Role:     models.RoleUnassigned,
		JoinedAt: time.Now(),
	})
	return copyRoom(r), nil
}

func (f *fakeRoomsRepo) AssignRoles(ctx context.Context, req AssignRolesRequest) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[req.RoomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.Status != models.RoomStatusWaiting {
		return nil, ErrInvalidState
	}
	r.Status = models.RoomStatusPlaying
	for i := range r.Players {
		if r.Players[i].ID == req.SpyID {
			r.Players[i].Role = models.RoleSpy
		} else {
			r.Players[i].Role = models.RoleCitizen
		}
	}
	return copyRoom(r), nil
}

func copyRoom(r *models.Room) *models.Room {
	c := *r
	c.Players = append([]models.Participant(nil), r.Players...)
	return &c
}

func TestCreateRoomContainsCreator(t *testing.T) {
	app := NewApp(newFakeRoomsRepo())

	r, err := app.CreateRoom(context.Background(), "device-1")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if r.Status != models.RoomStatusWaiting {
		t.Fatalf("status = %s, want %s", r.Status, models.RoomStatusWaiting)
	}
	if len(r.Players) != 1 || r.Players[0].ID != "device-1" {
		t.Fatalf("players = %+v, want exactly the creator", r.Players)
	}
	if r.Players[0].Role != models.RoleUnassigned {
		t.Fatalf("creator role = %s, want %s", r.Players[0].Role, models.RoleUnassigned)
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	repo := newFakeRoomsRepo()
	app := NewApp(repo)
	ctx := context.Background()

	r, err := app.CreateRoom(ctx, "creator")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := app.JoinRoom(ctx, r.ID, "joiner"); err != nil {
			t.Fatalf("JoinRoom attempt %d: %v", i+1, err)
		}
	}

	got, err := app.GetRoom(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if len(got.Players) != 2 {
		t.Fatalf("players = %d after repeated joins, want 2", len(got.Players))
	}
}

func TestMissingParticipantIDRejectedBeforeWrite(t *testing.T) {
	repo := newFakeRoomsRepo()
	app := NewApp(repo)
	ctx := context.Background()

	if _, err := app.CreateRoom(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("CreateRoom err = %v, want ErrInvalidInput", err)
	}
	if len(repo.rooms) != 0 {
		t.Fatalf("rooms = %d after rejected create, want 0", len(repo.rooms))
	}

	r, err := app.CreateRoom(ctx, "creator")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := app.JoinRoom(ctx, r.ID, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("JoinRoom err = %v, want ErrInvalidInput", err)
	}
	if got, _ := app.GetRoom(ctx, r.ID); len(got.Players) != 1 {
		t.Fatalf("players = %d after rejected join, want 1", len(got.Players))
	}
}

func TestJoinRoomNotFound(t *testing.T) {
	app := NewApp(newFakeRoomsRepo())

	_, err := app.JoinRoom(context.Background(), uuid.New(), "joiner")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestStartGameAssignsExactlyOneSpy(t *testing.T) {
	repo := newFakeRoomsRepo()
	app := NewApp(repo)
	ctx := context.Background()

	r, _ := app.CreateRoom(ctx, "p0")
	for _, id := range []string{"p1", "p2", "p3"} {
		if _, err := app.JoinRoom(ctx, r.ID, id); err != nil {
			t.Fatalf("JoinRoom(%s): %v", id, err)
		}
	}

	started, err := app.StartGame(ctx, r.ID)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if started.Status != models.RoomStatusPlaying {
		t.Fatalf("status = %s, want %s", started.Status, models.RoomStatusPlaying)
	}

	spies, citizens := 0, 0
	for _, p := range started.Players {
		switch p.Role {
		case models.RoleSpy:
			spies++
		case models.RoleCitizen:
			citizens++
		default:
			t.Fatalf("player %s still %s after start", p.ID, p.Role)
		}
	}
	if spies != 1 || citizens != len(started.Players)-1 {
		t.Fatalf("spies = %d, citizens = %d out of %d players", spies, citizens, len(started.Players))
	}
}

func TestStartGameTwiceFails(t *testing.T) {
	app := NewApp(newFakeRoomsRepo())
	ctx := context.Background()

	r, _ := app.CreateRoom(ctx, "p0")
	if _, err := app.StartGame(ctx, r.ID); err != nil {
		t.Fatalf("first StartGame: %v", err)
	}

	_, err := app.StartGame(ctx, r.ID)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second StartGame err = %v, want ErrInvalidState", err)
	}
}

func TestStartGameEmptyRoom(t *testing.T) {
	repo := newFakeRoomsRepo()
	app := NewApp(repo)
	ctx := context.Background()

	id := uuid.New()
	repo.rooms[id] = &models.Room{ID: id, Status: models.RoomStatusWaiting}

	_, err := app.StartGame(ctx, id)
	if !errors.Is(err, ErrEmptyRoom) {
		t.Fatalf("err = %v, want ErrEmptyRoom", err)
	}
}

func TestStartGameRoomNotFound(t *testing.T) {
	app := NewApp(newFakeRoomsRepo())

	_, err := app.StartGame(context.Background(), uuid.New())
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}

// Spy selection over repeated fresh games should land on every participant
// with roughly equal frequency.
func TestSpySelectionUniform(t *testing.T) {
	const (
		players = 5
		trials  = 5000
	)
	ids := []string{"p0", "p1", "p2", "p3", "p4"}
	counts := make(map[string]int, players)

	app := NewApp(newFakeRoomsRepo())
	ctx := context.Background()

	for i := 0; i < trials; i++ {
		repo := newFakeRoomsRepo()
		app.repo = repo

		r, err := app.CreateRoom(ctx, ids[0])
		if err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}
		for _, id := range ids[1:] {
			if _, err := app.JoinRoom(ctx, r.ID, id); err != nil {
				t.Fatalf("JoinRoom(%s): %v", id, err)
			}
		}
		started, err := app.StartGame(ctx, r.ID)
		if err != nil {
			t.Fatalf("StartGame: %v", err)
		}
		for _, p := range started.Players {
			if p.Role == models.RoleSpy {
				counts[p.ID]++
			}
		}
	}

	// Expected 1000 per participant; ±200 is well beyond 5 sigma for a fair
	// draw, so a failure here means the selection is biased, not unlucky.
	expected := trials / players
	for _, id := range ids {
		n := counts[id]
		if n < expected-200 || n > expected+200 {
			t.Fatalf("participant %s selected %d times, want ~%d (counts: %v)", id, n, expected, counts)
		}
	}
}
