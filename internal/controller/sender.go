package controller

import (
	"context"
	"time"

	"github.com/soundsync/server/internal/protocol"
	"github.com/soundsync/server/internal/service/room"
	"github.com/soundsync/server/pkg/wsrouter"
)

func (c controller) writeToConn(ctx context.Context, conn *wsrouter.Conn, output *wsrouter.Output) error {
	if err := conn.WriteJSON(output); err != nil {
		c.logger.DebugContext(ctx, "failed to write to conn", "type", output.Type, "error", err)
		return err
	}

	return nil
}

// broadcast writes the output to every conn. A dead member must not keep the
// rest of the room from receiving the message, so write errors are logged and
// skipped.
func (c controller) broadcast(ctx context.Context, conns []*wsrouter.Conn, output *wsrouter.Output) {
	for _, conn := range conns {
		c.writeToConn(ctx, conn, output)
	}
}

func (c controller) sendError(ctx context.Context, conn *wsrouter.Conn, message string) {
	c.writeToConn(ctx, conn, &wsrouter.Output{
		Type:    protocol.EventError,
		Payload: protocol.Error{Message: message},
	})
}

func (c controller) broadcastScheduledPlay(ctx context.Context, conns []*wsrouter.Conn, audioTime, targetTimestamp float64, senderID string) {
	c.broadcast(ctx, conns, &wsrouter.Output{
		Type: protocol.EventScheduledPlay,
		Payload: protocol.ScheduledPlay{
			AudioTime:       audioTime,
			TargetTimestamp: targetTimestamp,
			SenderID:        senderID,
		},
	})
}

func (c controller) broadcastPause(ctx context.Context, conns []*wsrouter.Conn, position float64, senderID string) {
	c.broadcast(ctx, conns, &wsrouter.Output{
		Type:    protocol.EventPause,
		Payload: protocol.TransportBroadcast{Time: position, SenderID: senderID},
	})
}

func (c controller) broadcastNewFile(ctx context.Context, conns []*wsrouter.Conn, track *room.Track) {
	payload := protocol.NewFile{}
	if track != nil {
		payload.Filename = &track.Filename
		payload.FilenameDisplay = &track.FilenameDisplay
		payload.Cover = optString(track.Cover)
	}

	c.broadcast(ctx, conns, &wsrouter.Output{
		Type:    protocol.EventNewFile,
		Payload: payload,
	})
}

func (c controller) broadcastQueueUpdate(ctx context.Context, conns []*wsrouter.Conn, queue []room.Track, currentIndex int) {
	c.broadcast(ctx, conns, &wsrouter.Output{
		Type:    protocol.EventQueueUpdate,
		Payload: queueUpdatePayload(queue, currentIndex),
	})
}

func (c controller) broadcastMemberCount(ctx context.Context, conns []*wsrouter.Conn, count int) {
	c.broadcast(ctx, conns, &wsrouter.Output{
		Type:    protocol.EventMemberCountUpdate,
		Payload: protocol.MemberCountUpdate{Count: count},
	})
}

// RunSyncBroadcaster emits the server_sync heartbeat to every playing room at
// a fixed cadence until ctx is canceled. The Drift Corrector on each client
// consumes it.
func (c controller) RunSyncBroadcaster(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sync := range c.roomService.PlayingRooms(ctx) {
				c.broadcast(ctx, sync.Conns, &wsrouter.Output{
					Type: protocol.EventServerSync,
					Payload: protocol.ServerSync{
						AudioTime:  sync.AudioTime,
						ServerTime: sync.ServerTime,
					},
				})
			}
		}
	}
}
