package room

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrNotInRoom         = errors.New("client has not joined a room")
	ErrNoTrackLoaded     = errors.New("no track loaded")
	ErrQueueLimitReached = errors.New("queue limit reached")
	ErrInvalidQueueIndex = errors.New("invalid queue index")
	ErrEmptyQueue        = errors.New("queue is empty")
)
