package controller

import (
	"errors"

	"github.com/soundsync/server/internal/protocol"
	"github.com/soundsync/server/internal/service/room"
)

func optString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func tracksPayload(tracks []room.Track) []protocol.Track {
	out := make([]protocol.Track, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, protocol.Track{
			Filename:        t.Filename,
			FilenameDisplay: t.FilenameDisplay,
			Cover:           optString(t.Cover),
			UploadTime:      t.UploadTime,
		})
	}

	return out
}

func queueUpdatePayload(queue []room.Track, currentIndex int) protocol.QueueUpdate {
	return protocol.QueueUpdate{
		Queue:        tracksPayload(queue),
		CurrentIndex: currentIndex,
	}
}

// clientMessage picks the message surfaced to the offending client. Internal
// failures stay internal.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "Room not found."
	case errors.Is(err, room.ErrRoomFull):
		return "Room is full."
	case errors.Is(err, room.ErrNotInRoom):
		return "Join a room first."
	case errors.Is(err, room.ErrNoTrackLoaded):
		return "No track loaded."
	case errors.Is(err, room.ErrQueueLimitReached):
		return "Queue limit reached."
	case errors.Is(err, room.ErrInvalidQueueIndex):
		return "Invalid queue index."
	case errors.Is(err, room.ErrEmptyQueue):
		return "Queue is empty."
	default:
		return "Internal error."
	}
}
