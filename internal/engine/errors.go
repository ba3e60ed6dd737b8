package engine

import "errors"

var (
	ErrRoomFull     = errors.New("room is full")
	ErrTooManyRooms = errors.New("room limit reached")
	ErrNotInRoom    = errors.New("connection has not joined a room")
)
