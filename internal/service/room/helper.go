package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/soundsync/server/internal/repository/room"
)

func (s *service) getPlayback(ctx context.Context, roomID string) (room.Playback, error) {
	playback, err := s.roomRepo.GetPlayback(ctx, roomID)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return room.Playback{}, ErrRoomNotFound
		}
		return room.Playback{}, fmt.Errorf("failed to get playback: %w", err)
	}

	return playback, nil
}
