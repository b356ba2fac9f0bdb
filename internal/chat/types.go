package chat

import (
	"time"

	"github.com/google/uuid"
)

// CreateMessageRequest represents a request to store a new message. Delay is
// added to the server-assigned creation timestamp to derive the release
// instant.
type CreateMessageRequest struct {
	ID       uuid.UUID     `json:"id"`
	RoomID   uuid.UUID     `json:"room_id"`
	SenderID string        `json:"sender_id"`
	Body     string        `json:"body"`
	Delay    time.Duration `json:"delay"`
}
