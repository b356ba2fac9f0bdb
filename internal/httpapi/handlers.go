package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"spyroom/internal/chat"
	"spyroom/internal/room"
	"spyroom/internal/syncevent"
)

// Handlers exposes the four state-mutation operations plus room and message
// reads over JSON HTTP. Real-time observation happens on the gateway; these
// endpoints are the write path and the snapshot path.
type Handlers struct {
	rooms  *room.App
	chat   *chat.App
	events *syncevent.App
}

// NewHandlers creates the HTTP API handlers
func NewHandlers(rooms *room.App, chatApp *chat.App, events *syncevent.App) *Handlers {
	return &Handlers{
		rooms:  rooms,
		chat:   chatApp,
		events: events,
	}
}

// RegisterRoutes registers API routes with an HTTP mux
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms", h.handleCreateRoom)
	mux.HandleFunc("GET /api/rooms/{id}", h.handleGetRoom)
	mux.HandleFunc("POST /api/rooms/{id}/join", h.handleJoinRoom)
	mux.HandleFunc("POST /api/rooms/{id}/start", h.handleStartGame)
	mux.HandleFunc("POST /api/rooms/{id}/messages", h.handleSendMessage)
	mux.HandleFunc("GET /api/rooms/{id}/messages", h.handleListMessages)
	mux.HandleFunc("POST /api/rooms/{id}/event", h.handleTriggerSyncEvent)
}

type createRoomRequest struct {
	CreatorID string `json:"creator_id"`
}

func (h *Handlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CreatorID == "" {
		writeError(w, http.StatusBadRequest, "creator_id is required")
		return
	}

	created, err := h.rooms.CreateRoom(r.Context(), req.CreatorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathRoomID(w, r)
	if !ok {
		return
	}

	found, err := h.rooms.GetRoom(r.Context(), roomID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

type joinRoomRequest struct {
	ParticipantID string `json:"participant_id"`
}

func (h *Handlers) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathRoomID(w, r)
	if !ok {
		return
	}

	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "participant_id is required")
		return
	}

	joined, err := h.rooms.JoinRoom(r.Context(), roomID, req.ParticipantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joined)
}

func (h *Handlers) handleStartGame(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathRoomID(w, r)
	if !ok {
		return
	}

	started, err := h.rooms.StartGame(r.Context(), roomID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, started)
}

type sendMessageRequest struct {
	SenderID string `json:"sender_id"`
	Body     string `json:"body"`
}

func (h *Handlers) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathRoomID(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.chat.SendMessage(r.Context(), roomID, req.SenderID, req.Body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Accepted, not visible yet: the body echoes the release instant so the
	// client can render a pending state without peeking at the content early.
	writeJSON(w, http.StatusAccepted, msg)
}

func (h *Handlers) handleListMessages(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathRoomID(w, r)
	if !ok {
		return
	}

	msgs, err := h.chat.ListMessages(r.Context(), roomID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

type triggerSyncEventRequest struct {
	DurationMs int64 `json:"duration_ms"`
}

func (h *Handlers) handleTriggerSyncEvent(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathRoomID(w, r)
	if !ok {
		return
	}

	var req triggerSyncEventRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ev, err := h.events.Trigger(r.Context(), roomID, time.Duration(req.DurationMs)*time.Millisecond)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func pathRoomID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return uuid.Nil, false
	}
	return id, true
}

// writeDomainError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is treated as the store being unavailable: transient, safe to
// retry, and never silently dropped.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, chat.ErrRoomNotFound),
		errors.Is(err, syncevent.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "room not found")
	case errors.Is(err, room.ErrInvalidState):
		writeError(w, http.StatusConflict, "room is not in a valid state for this operation")
	case errors.Is(err, room.ErrEmptyRoom):
		writeError(w, http.StatusConflict, "room has no participants")
	case errors.Is(err, chat.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "message text must not be empty")
	case errors.Is(err, room.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "participant id is required")
	default:
		log.Error().Err(err).Msg("store operation failed")
		writeError(w, http.StatusServiceUnavailable, "store unavailable, retry")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
