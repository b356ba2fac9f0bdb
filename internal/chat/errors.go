package chat

import "errors"

// ErrInvalidInput is returned when a message is rejected before any write
var ErrInvalidInput = errors.New("invalid message input")

// ErrRoomNotFound is returned when the target room does not resolve
var ErrRoomNotFound = errors.New("room not found")
