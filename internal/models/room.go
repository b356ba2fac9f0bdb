package models

import (
	"time"

	"github.com/google/uuid"
)

// Role defines the hidden role of a participant.
type Role string

const (
	RoleUnassigned Role = "UNASSIGNED"
	RoleCitizen    Role = "CITIZEN"
	RoleSpy        Role = "SPY"
)

// RoomStatus defines the status of a room.
type RoomStatus string

const (
	RoomStatusWaiting RoomStatus = "WAITING"
	RoomStatusPlaying RoomStatus = "PLAYING"
	// RoomStatusVoting is reserved in the model; no transition into it is
	// implemented yet.
	RoomStatusVoting RoomStatus = "VOTING"
)

// Participant is one device identity inside a room. Identity is immutable;
// the role is mutated exactly once per round, at game start.
type Participant struct {
	ID       string    `json:"id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// SyncEvent is a timed room-wide broadcast window. The stored Active flag is
// never cleared on expiry; observers must compare EndTime against their own
// clock.
type SyncEvent struct {
	Active  bool      `json:"active"`
	EndTime time.Time `json:"end_time"`
}

// Room groups participants, status, messages and an optional sync event.
// Players are ordered by join time.
type Room struct {
	ID        uuid.UUID     `json:"id"`
	Status    RoomStatus    `json:"status"`
	Players   []Participant `json:"players"`
	SyncEvent *SyncEvent    `json:"sync_event,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Player returns the participant with the given id, or nil.
func (r *Room) Player(participantID string) *Participant {
	for i := range r.Players {
		if r.Players[i].ID == participantID {
			return &r.Players[i]
		}
	}
	return nil
}
