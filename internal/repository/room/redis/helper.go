package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

func (r repo) roomKey(roomID string) string {
	return "room:" + roomID
}

func (r repo) queueKey(roomID string) string {
	return "room:" + roomID + ":queue"
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
