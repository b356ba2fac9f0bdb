package room

import (
	"github.com/google/uuid"
)

// CreateRoomRequest represents a request to create a new room
type CreateRoomRequest struct {
	ID        uuid.UUID `json:"id"`
	CreatorID string    `json:"creator_id"`
}

// AssignRolesRequest commits a game start: status WAITING -> PLAYING plus the
// role split, atomically. SpyID must be a member of the room.
type AssignRolesRequest struct {
	RoomID uuid.UUID `json:"room_id"`
	SpyID  string    `json:"spy_id"`
}
