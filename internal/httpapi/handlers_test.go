package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"spyroom/internal/chat"
	"spyroom/internal/models"
	"spyroom/internal/room"
	"spyroom/internal/syncevent"
)

type memRoomsRepo struct {
	rooms map[uuid.UUID]*models.Room
}

func (m *memRoomsRepo) CreateRoom(ctx context.Context, req room.CreateRoomRequest) (*models.Room, error) {
	r := &models.Room{
		ID:     req.ID,
		Status: models.RoomStatusWaiting,
		Players: []models.Participant{
			{ID: req.CreatorID, Role: models.RoleUnassigned, JoinedAt: time.Now()},
		},
	}
	m.rooms[req.ID] = r
	return r, nil
}

func (m *memRoomsRepo) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	return r, nil
}

func (m *memRoomsRepo) AddPlayer(ctx context.Context, roomID uuid.UUID, participantID string) (*models.Room, error) {
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	if r.Player(participantID) == nil {
		r.Players = append(r.Players, models.Participant{ID: participantID, Role: models.RoleUnassigned, JoinedAt: time.Now()})
	}
	return r, nil
}

func (m *memRoomsRepo) AssignRoles(ctx context.Context, req room.AssignRolesRequest) (*models.Room, error) {
	r, ok := m.rooms[req.RoomID]
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	if r.Status != models.RoomStatusWaiting {
		return nil, room.ErrInvalidState
	}
	r.Status = models.RoomStatusPlaying
	for i := range r.Players {
		if r.Players[i].ID == req.SpyID {
			r.Players[i].Role = models.RoleSpy
		} else {
			r.Players[i].Role = models.RoleCitizen
		}
	}
	return r, nil
}

type memMessagesRepo struct {
	rooms    *memRoomsRepo
	messages []models.Message
}

func (m *memMessagesRepo) CreateMessage(ctx context.Context, req chat.CreateMessageRequest) (*models.Message, error) {
	if _, ok := m.rooms.rooms[req.RoomID]; !ok {
		return nil, chat.ErrRoomNotFound
	}
	now := time.Now()
	msg := models.Message{
		ID:           req.ID,
		RoomID:       req.RoomID,
		SenderID:     req.SenderID,
		Body:         req.Body,
		CreatedAt:    now,
		VisibleAfter: now.Add(req.Delay),
	}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *memMessagesRepo) ListVisibleMessages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error) {
	now := time.Now()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.RoomID == roomID && chat.Visible(&msg, now) {
			out = append(out, msg)
		}
	}
	return out, nil
}

type memEventsRepo struct {
	rooms *memRoomsRepo
}

func (m *memEventsRepo) ArmSyncEvent(ctx context.Context, roomID uuid.UUID, endTime time.Time) (*models.SyncEvent, error) {
	r, ok := m.rooms.rooms[roomID]
	if !ok {
		return nil, syncevent.ErrRoomNotFound
	}
	r.SyncEvent = &models.SyncEvent{Active: true, EndTime: endTime}
	return r.SyncEvent, nil
}

func newTestServer() (*http.ServeMux, *memRoomsRepo) {
	roomsRepo := &memRoomsRepo{rooms: make(map[uuid.UUID]*models.Room)}
	h := NewHandlers(
		room.NewApp(roomsRepo),
		chat.NewApp(&memMessagesRepo{rooms: roomsRepo}, nil),
		syncevent.NewApp(&memEventsRepo{rooms: roomsRepo}),
	)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux, roomsRepo
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateRoomEndpoint(t *testing.T) {
	mux, _ := newTestServer()

	rec := doJSON(t, mux, http.MethodPost, "/api/rooms", `{"creator_id":"device-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body)
	}

	var got models.Room
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != models.RoomStatusWaiting || len(got.Players) != 1 {
		t.Fatalf("room = %+v, want waiting room with the creator", got)
	}
}

func TestCreateRoomRequiresCreator(t *testing.T) {
	mux, _ := newTestServer()

	rec := doJSON(t, mux, http.MethodPost, "/api/rooms", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestJoinUnknownRoomReturns404(t *testing.T) {
	mux, _ := newTestServer()

	rec := doJSON(t, mux, http.MethodPost, "/api/rooms/"+uuid.NewString()+"/join", `{"participant_id":"p1"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (body %s)", rec.Code, rec.Body)
	}
}

func TestStartGameTwiceReturnsConflict(t *testing.T) {
	mux, repo := newTestServer()

	rec := doJSON(t, mux, http.MethodPost, "/api/rooms", `{"creator_id":"p0"}`)
	var created models.Room
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created room: %v", err)
	}

	startPath := "/api/rooms/" + created.ID.String() + "/start"
	if rec := doJSON(t, mux, http.MethodPost, startPath, ""); rec.Code != http.StatusOK {
		t.Fatalf("first start status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	if rec := doJSON(t, mux, http.MethodPost, startPath, ""); rec.Code != http.StatusConflict {
		t.Fatalf("second start status = %d, want 409", rec.Code)
	}
	if repo.rooms[created.ID].Status != models.RoomStatusPlaying {
		t.Fatal("room not playing after start")
	}
}

func TestSendEmptyMessageReturns400(t *testing.T) {
	mux, _ := newTestServer()

	rec := doJSON(t, mux, http.MethodPost, "/api/rooms", `{"creator_id":"p0"}`)
	var created models.Room
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created room: %v", err)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/rooms/"+created.ID.String()+"/messages",
		`{"sender_id":"p0","body":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body)
	}
}

func TestSendMessageAcceptedNotYetVisible(t *testing.T) {
	mux, _ := newTestServer()

	rec := doJSON(t, mux, http.MethodPost, "/api/rooms", `{"creator_id":"p0"}`)
	var created models.Room
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created room: %v", err)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/rooms/"+created.ID.String()+"/messages",
		`{"sender_id":"p0","body":"who goes there"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("send status = %d, want 202 (body %s)", rec.Code, rec.Body)
	}

	// The sender is as blind as everyone else while the delay runs.
	rec = doJSON(t, mux, http.MethodGet, "/api/rooms/"+created.ID.String()+"/messages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var listed struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Messages) != 0 {
		t.Fatalf("got %d visible messages immediately after send, want 0", len(listed.Messages))
	}
}

func TestTriggerSyncEventEndpoint(t *testing.T) {
	mux, _ := newTestServer()

	rec := doJSON(t, mux, http.MethodPost, "/api/rooms", `{"creator_id":"p0"}`)
	var created models.Room
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created room: %v", err)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/rooms/"+created.ID.String()+"/event", `{"duration_ms":5000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	var ev models.SyncEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if !ev.Active || !ev.EndTime.After(time.Now()) {
		t.Fatalf("event = %+v, want active with a future end time", ev)
	}
}

func TestInvalidRoomIDReturns400(t *testing.T) {
	mux, _ := newTestServer()

	rec := doJSON(t, mux, http.MethodGet, "/api/rooms/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
