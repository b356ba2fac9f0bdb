package gateway

import (
	"encoding/json"
	"time"
)

// RoomEvent is the envelope delivered to WebSocket clients.
type RoomEvent struct {
	ID        string          `json:"id"`        // Event UUID
	RoomID    string          `json:"room_id"`   // Room UUID
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of room event on the client wire
type EventType string

const (
	EventTypeRoomCreated     EventType = "RoomCreated"
	EventTypePlayerJoined    EventType = "PlayerJoined"
	EventTypeGameStarted     EventType = "GameStarted"
	EventTypeRoleAssigned    EventType = "RoleAssigned"
	EventTypeMessagePosted   EventType = "MessagePosted"
	EventTypeMessageReleased EventType = "MessageReleased"
	EventTypeSyncEventArmed  EventType = "SyncEventArmed"
)

// GameStartedNotice is the public shape of a game start. Role assignments are
// stripped before broadcast; each participant gets their own RoleAssigned
// event instead.
type GameStartedNotice struct {
	RoomID      string    `json:"room_id"`
	StartedAt   time.Time `json:"started_at"`
	PlayerCount int       `json:"player_count"`
}

// RoleAssignedNotice is delivered only to the participant it names.
type RoleAssignedNotice struct {
	RoomID string `json:"room_id"`
	Role   string `json:"role"`
}
