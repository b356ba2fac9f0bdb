package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a chat message with withheld visibility. CreatedAt is assigned
// by the server at write time; VisibleAfter is the randomized release
// instant. A message must not be shown to any observer, its author included,
// before VisibleAfter.
type Message struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	SenderID     string    `json:"sender_id"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
	VisibleAfter time.Time `json:"visible_after"`
	Released     bool      `json:"released"`
}
