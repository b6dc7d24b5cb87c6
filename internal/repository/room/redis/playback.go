package redis

import (
	"context"
	"fmt"

	"github.com/soundsync/server/internal/repository/room"
)

func (r repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	pipe := r.rc.TxPipeline()

	roomKey := r.roomKey(params.RoomID)
	pipe.HSet(ctx, roomKey, params.Playback)
	pipe.Expire(ctx, roomKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

func (r repo) IsRoomExists(ctx context.Context, roomID string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.roomKey(roomID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) GetPlayback(ctx context.Context, roomID string) (room.Playback, error) {
	roomKey := r.roomKey(roomID)

	res, err := r.rc.Exists(ctx, roomKey).Result()
	if err != nil {
		return room.Playback{}, fmt.Errorf("failed to get playback: %w", err)
	}
	if res == 0 {
		return room.Playback{}, room.ErrRoomNotFound
	}

	var playback room.Playback
	if err := r.rc.HGetAll(ctx, roomKey).Scan(&playback); err != nil {
		return room.Playback{}, fmt.Errorf("failed to get playback: %w", err)
	}

	r.rc.Expire(ctx, roomKey, r.expireDuration)

	return playback, nil
}

func (r repo) UpdatePlaybackState(ctx context.Context, params *room.UpdatePlaybackStateParams) error {
	roomKey := r.roomKey(params.RoomID)

	cmd := r.rc.Exists(ctx, roomKey)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("failed to update playback state: %w", err)
	}
	if cmd.Val() == 0 {
		return room.ErrRoomNotFound
	}

	if err := r.rc.HSet(ctx, roomKey,
		"is_playing", params.IsPlaying,
		"last_progress_s", params.LastProgressS,
		"last_updated_at", params.LastUpdatedAt,
	).Err(); err != nil {
		return fmt.Errorf("failed to update playback state: %w", err)
	}

	r.rc.Expire(ctx, roomKey, r.expireDuration)

	return nil
}

func (r repo) UpdateCurrentTrack(ctx context.Context, params *room.UpdateCurrentTrackParams) error {
	roomKey := r.roomKey(params.RoomID)

	cmd := r.rc.Exists(ctx, roomKey)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("failed to update current track: %w", err)
	}
	if cmd.Val() == 0 {
		return room.ErrRoomNotFound
	}

	if err := r.rc.HSet(ctx, roomKey,
		"current_file", params.CurrentFile,
		"current_file_display", params.CurrentDisplay,
		"current_cover", params.CurrentCover,
		"current_index", params.CurrentIndex,
		"is_playing", params.IsPlaying,
		"last_progress_s", params.LastProgressS,
		"last_updated_at", params.LastUpdatedAt,
	).Err(); err != nil {
		return fmt.Errorf("failed to update current track: %w", err)
	}

	r.rc.Expire(ctx, roomKey, r.expireDuration)

	return nil
}
