package room

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundsync/server/internal/repository/room"
)

type CreateRoomResponse struct {
	RoomID string
}

// RoomExists reports whether the room id refers to a live room.
func (s *service) RoomExists(ctx context.Context, roomID string) (bool, error) {
	exists, err := s.roomRepo.IsRoomExists(ctx, roomID)
	if err != nil {
		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return exists, nil
}

func (s *service) CreateRoom(ctx context.Context) (CreateRoomResponse, error) {
	roomID := s.generator.GenerateRandomString(roomIDLength)
	slog.Info("create room", "roomID", roomID)

	if err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{
		RoomID: roomID,
		Playback: room.Playback{
			IsPlaying:     false,
			LastProgressS: 0,
			LastUpdatedAt: unixSeconds(s.now()),
			CurrentIndex:  -1,
		},
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
	}

	return CreateRoomResponse{RoomID: roomID}, nil
}
