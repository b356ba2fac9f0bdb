package events

import (
	"time"
)

// Event payload types shared between the domain services and the gateway.

// Event type names as they appear on the bus.
const (
	TypeRoomCreated     = "RoomCreated"
	TypePlayerJoined    = "PlayerJoined"
	TypeGameStarted     = "GameStarted"
	TypeMessagePosted   = "MessagePosted"
	TypeMessageReleased = "MessageReleased"
	TypeSyncEventArmed  = "SyncEventArmed"
)

// RoomCreatedPayload is the payload for a RoomCreated event
type RoomCreatedPayload struct {
	RoomID    string    `json:"room_id"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PlayerJoinedPayload is the payload for a PlayerJoined event
type PlayerJoinedPayload struct {
	RoomID        string    `json:"room_id"`
	ParticipantID string    `json:"participant_id"`
	JoinedAt      time.Time `json:"joined_at"`
	PlayerCount   int       `json:"player_count"`
}

// RoleAssignment pairs a participant with the role drawn at game start.
type RoleAssignment struct {
	ParticipantID string `json:"participant_id"`
	Role          string `json:"role"`
}

// GameStartedPayload is the payload for a GameStarted event. Assignments are
// per-participant secrets; the gateway must only deliver each entry to its
// own participant.
type GameStartedPayload struct {
	RoomID      string           `json:"room_id"`
	StartedAt   time.Time        `json:"started_at"`
	PlayerCount int              `json:"player_count"`
	Assignments []RoleAssignment `json:"assignments"`
}

// MessagePostedPayload announces that a message now exists and when it will
// release. It deliberately carries neither body nor sender: every observer
// stays equally blind until VisibleAfter.
type MessagePostedPayload struct {
	MessageID    string    `json:"message_id"`
	RoomID       string    `json:"room_id"`
	CreatedAt    time.Time `json:"created_at"`
	VisibleAfter time.Time `json:"visible_after"`
}

// MessageReleasedPayload is the payload for a MessageReleased event, emitted
// once a message's visibility delay has elapsed.
type MessageReleasedPayload struct {
	MessageID    string    `json:"message_id"`
	RoomID       string    `json:"room_id"`
	SenderID     string    `json:"sender_id"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
	VisibleAfter time.Time `json:"visible_after"`
}

// SyncEventArmedPayload is the payload for a SyncEventArmed event
type SyncEventArmedPayload struct {
	RoomID  string    `json:"room_id"`
	ArmedAt time.Time `json:"armed_at"`
	EndTime time.Time `json:"end_time"`
}
