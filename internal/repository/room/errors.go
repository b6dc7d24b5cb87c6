package room

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrTrackNotFound = errors.New("track not found")
)
