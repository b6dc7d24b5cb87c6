package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/soundsync/server/internal/protocol"
	"github.com/soundsync/server/internal/service/room"
	"github.com/soundsync/server/pkg/ctxlogger"
	"github.com/soundsync/server/pkg/wsrouter"
)

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	conn := wsrouter.NewConn(ws)
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("conn_id", uuid.NewString()))

	mux := c.getWSRouter()
	if err := mux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}

	c.disconnect(ctx, conn)
}

func (c controller) disconnect(ctx context.Context, conn *wsrouter.Conn) {
	_, roomID, err := c.roomService.GetClientRoom(conn)
	if err != nil {
		// a conn that never joined a room has nothing to clean up
		return
	}

	// the lock spans the membership change and the broadcast, same as every
	// command handler, so a racing join observes them in order
	unlock := c.roomService.LockRoom(roomID)
	defer unlock()

	resp, err := c.roomService.DisconnectClient(ctx, conn)
	if err != nil {
		return
	}

	c.broadcastMemberCount(ctx, resp.Conns, resp.MemberCount)
}

func (c controller) handleJoin(ctx context.Context, conn *wsrouter.Conn, payload json.RawMessage) error {
	var input protocol.Join
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to decode join: %w", err)
	}
	if input.Room == "" {
		return room.ErrRoomNotFound
	}

	clientID := uuid.NewString()

	unlock := c.roomService.LockRoom(input.Room)
	defer unlock()

	joinResp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		RoomID:   input.Room,
		ClientID: clientID,
		Conn:     conn,
	})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	snapshot := joinResp.Snapshot
	if err := c.writeToConn(ctx, conn, &wsrouter.Output{
		Type: protocol.EventRoomState,
		Payload: protocol.RoomState{
			ClientID:       clientID,
			CurrentFile:    optString(snapshot.CurrentFile),
			CurrentDisplay: optString(snapshot.CurrentDisplay),
			CurrentCover:   optString(snapshot.CurrentCover),
			IsPlaying:      snapshot.IsPlaying,
			LastProgressS:  snapshot.LastProgressS,
			LastUpdatedAt:  snapshot.LastUpdatedAt,
			Queue:          tracksPayload(snapshot.Queue),
			CurrentIndex:   snapshot.CurrentIndex,
			MemberCount:    snapshot.MemberCount,
		},
	}); err != nil {
		return fmt.Errorf("failed to send room state: %w", err)
	}

	c.broadcastMemberCount(ctx, joinResp.Conns, joinResp.MemberCount)

	return nil
}

// handleClientPing answers immediately with the server wall clock so the
// client can estimate its offset from one round trip.
func (c controller) handleClientPing(ctx context.Context, conn *wsrouter.Conn, _ json.RawMessage) error {
	return c.writeToConn(ctx, conn, &wsrouter.Output{
		Type:    protocol.EventServerPong,
		Payload: protocol.ServerPong{Timestamp: c.roomService.ServerTime()},
	})
}

func (c controller) handlePlay(ctx context.Context, conn *wsrouter.Conn, payload json.RawMessage) error {
	var input protocol.Transport
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to decode play: %w", err)
	}

	clientID, roomID, err := c.roomService.GetClientRoom(conn)
	if err != nil {
		return err
	}

	unlock := c.roomService.LockRoom(roomID)
	defer unlock()

	playResp, err := c.roomService.Play(ctx, &room.PlayParams{
		RoomID:   roomID,
		SenderID: clientID,
		Time:     input.Time,
	})
	if err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	c.broadcastScheduledPlay(ctx, playResp.Conns, playResp.AudioTime, playResp.TargetTimestamp, clientID)

	return nil
}

func (c controller) handlePause(ctx context.Context, conn *wsrouter.Conn, payload json.RawMessage) error {
	clientID, roomID, err := c.roomService.GetClientRoom(conn)
	if err != nil {
		return err
	}

	unlock := c.roomService.LockRoom(roomID)
	defer unlock()

	pauseResp, err := c.roomService.Pause(ctx, &room.PauseParams{
		RoomID:   roomID,
		SenderID: clientID,
	})
	if err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	if pauseResp.Applied {
		c.broadcastPause(ctx, pauseResp.Conns, pauseResp.Time, clientID)
	}

	return nil
}

func (c controller) handleSeek(ctx context.Context, conn *wsrouter.Conn, payload json.RawMessage) error {
	var input protocol.Transport
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to decode seek: %w", err)
	}

	clientID, roomID, err := c.roomService.GetClientRoom(conn)
	if err != nil {
		return err
	}

	unlock := c.roomService.LockRoom(roomID)
	defer unlock()

	seekResp, err := c.roomService.Seek(ctx, &room.SeekParams{
		RoomID:   roomID,
		SenderID: clientID,
		Time:     input.Time,
	})
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	if seekResp.WasPlaying {
		c.broadcastScheduledPlay(ctx, seekResp.Conns, seekResp.AudioTime, seekResp.TargetTimestamp, clientID)
	} else {
		c.broadcastPause(ctx, seekResp.Conns, seekResp.AudioTime, clientID)
	}

	return nil
}

func (c controller) handleSync(ctx context.Context, conn *wsrouter.Conn, payload json.RawMessage) error {
	var input protocol.Transport
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to decode sync: %w", err)
	}

	clientID, roomID, err := c.roomService.GetClientRoom(conn)
	if err != nil {
		return err
	}

	unlock := c.roomService.LockRoom(roomID)
	defer unlock()

	resyncResp, err := c.roomService.Resync(ctx, &room.ResyncParams{
		RoomID: roomID,
		Time:   input.Time,
	})
	if err != nil {
		return fmt.Errorf("failed to resync: %w", err)
	}

	c.broadcastScheduledPlay(ctx, resyncResp.Conns, resyncResp.AudioTime, resyncResp.TargetTimestamp, clientID)

	return nil
}

func (c controller) handleNextSong(ctx context.Context, conn *wsrouter.Conn, payload json.RawMessage) error {
	var input protocol.NextSong
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to decode next_song: %w", err)
	}

	_, roomID, err := c.roomService.GetClientRoom(conn)
	if err != nil {
		return err
	}

	unlock := c.roomService.LockRoom(roomID)
	defer unlock()

	changeResp, err := c.roomService.NextTrack(ctx, &room.NextTrackParams{
		RoomID:   roomID,
		AutoPlay: input.AutoPlay,
	})
	if err != nil {
		return fmt.Errorf("failed to advance track: %w", err)
	}

	c.applyTrackChange(ctx, &changeResp)

	return nil
}

func (c controller) handlePreviousSong(ctx context.Context, conn *wsrouter.Conn, payload json.RawMessage) error {
	_, roomID, err := c.roomService.GetClientRoom(conn)
	if err != nil {
		return err
	}

	unlock := c.roomService.LockRoom(roomID)
	defer unlock()

	changeResp, err := c.roomService.PreviousTrack(ctx, &room.PreviousTrackParams{RoomID: roomID})
	if err != nil {
		return fmt.Errorf("failed to rewind track: %w", err)
	}

	c.applyTrackChange(ctx, &changeResp)

	return nil
}

func (c controller) applyTrackChange(ctx context.Context, changeResp *room.TrackChangeResponse) {
	c.broadcastNewFile(ctx, changeResp.Conns, &changeResp.Track)

	if changeResp.AutoPlay {
		c.broadcastScheduledPlay(ctx, changeResp.Conns, changeResp.AudioTime, changeResp.TargetTimestamp, "")
	} else {
		c.broadcastPause(ctx, changeResp.Conns, 0, "")
	}

	c.broadcastQueueUpdate(ctx, changeResp.Conns, changeResp.Queue, changeResp.CurrentIndex)
}
