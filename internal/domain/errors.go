package domain

import "errors"

// Every operation failure is local to the requesting connection and mapped
// to a named outbound event at the dispatch boundary. None are fatal.
var (
	ErrInvalidPassword = errors.New("no room matches that password")
	ErrRoomFull        = errors.New("room is full")
	ErrUsernameTaken   = errors.New("username already taken in this room")
	ErrRoomExists      = errors.New("room already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrRoomProtected   = errors.New("room is protected")
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotInRoom       = errors.New("not in a room")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMessageTooLong  = errors.New("message too long")
	ErrMessageNotFound = errors.New("message not found")
	ErrForbidden       = errors.New("not allowed")
)
