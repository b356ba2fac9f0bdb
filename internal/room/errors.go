package room

import "errors"

// ErrInvalidInput is returned when a request is rejected before any write
var ErrInvalidInput = errors.New("invalid room input")

// ErrRoomNotFound is returned when a room id does not resolve
var ErrRoomNotFound = errors.New("room not found")

// ErrInvalidState is returned when an operation is attempted outside the
// room status it is valid in
var ErrInvalidState = errors.New("invalid room state")

// ErrEmptyRoom is returned when a game is started with no participants
var ErrEmptyRoom = errors.New("room has no participants")
