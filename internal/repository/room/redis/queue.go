package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soundsync/server/internal/repository/room"
)

// removedSentinel marks a list slot scheduled for removal. LSET + LREM is the
// usual redis idiom for deleting a list element by index.
const removedSentinel = "__removed__"

func (r repo) AppendTrack(ctx context.Context, params *room.AppendTrackParams) (int, error) {
	data, err := json.Marshal(params.Track)
	if err != nil {
		return 0, fmt.Errorf("failed to append track: %w", err)
	}

	queueKey := r.queueKey(params.RoomID)
	length, err := r.rc.RPush(ctx, queueKey, data).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to append track: %w", err)
	}

	r.rc.Expire(ctx, queueKey, r.expireDuration)

	return int(length), nil
}

func (r repo) GetQueue(ctx context.Context, roomID string) ([]room.Track, error) {
	queueKey := r.queueKey(roomID)
	items, err := r.rc.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}

	r.rc.Expire(ctx, queueKey, r.expireDuration)

	queue := make([]room.Track, 0, len(items))
	for _, item := range items {
		var track room.Track
		if err := json.Unmarshal([]byte(item), &track); err != nil {
			return nil, fmt.Errorf("failed to decode track: %w", err)
		}
		queue = append(queue, track)
	}

	return queue, nil
}

func (r repo) GetQueueLength(ctx context.Context, roomID string) (int, error) {
	length, err := r.rc.LLen(ctx, r.queueKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}

	return int(length), nil
}

func (r repo) GetTrack(ctx context.Context, roomID string, index int) (room.Track, error) {
	item, err := r.rc.LIndex(ctx, r.queueKey(roomID), int64(index)).Result()
	if err != nil {
		return room.Track{}, room.ErrTrackNotFound
	}

	var track room.Track
	if err := json.Unmarshal([]byte(item), &track); err != nil {
		return room.Track{}, fmt.Errorf("failed to decode track: %w", err)
	}

	return track, nil
}

func (r repo) RemoveTrack(ctx context.Context, params *room.RemoveTrackParams) error {
	queueKey := r.queueKey(params.RoomID)

	if err := r.rc.LSet(ctx, queueKey, int64(params.Index), removedSentinel).Err(); err != nil {
		return room.ErrTrackNotFound
	}

	if err := r.rc.LRem(ctx, queueKey, 1, removedSentinel).Err(); err != nil {
		return fmt.Errorf("failed to remove track: %w", err)
	}

	r.rc.Expire(ctx, queueKey, r.expireDuration)

	return nil
}

func (r repo) ClearQueue(ctx context.Context, roomID string) error {
	if err := r.rc.Del(ctx, r.queueKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}

	return nil
}
