package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soundsync/server/internal/repository/connection"
	"github.com/soundsync/server/internal/repository/room"
	"github.com/soundsync/server/pkg/wsrouter"
)

type JoinRoomParams struct {
	RoomID   string
	ClientID string
	Conn     *wsrouter.Conn
}

type JoinRoomResponse struct {
	Snapshot    Snapshot
	MemberCount int
	Conns       []*wsrouter.Conn
}

// JoinRoom registers the connection as a room member and returns the state
// snapshot the joiner resynchronizes from. The snapshot's position is
// elapsed-corrected, so a room already playing hands out its live position.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	playback, err := s.getPlayback(ctx, params.RoomID)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	if s.connRepo.CountByRoomID(params.RoomID) >= s.config.MembersLimit {
		return JoinRoomResponse{}, ErrRoomFull
	}

	if err := s.connRepo.Add(params.Conn, params.ClientID, params.RoomID); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to register connection: %w", err)
	}

	queue, err := s.roomRepo.GetQueue(ctx, params.RoomID)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get queue: %w", err)
	}

	memberCount := s.connRepo.CountByRoomID(params.RoomID)
	slog.Info("client joined room", "roomID", params.RoomID, "clientID", params.ClientID, "members", memberCount)

	// the snapshot carries the elapsed-corrected position together with the
	// moment it was captured, so the pair stays internally consistent
	now := unixSeconds(s.now())
	snapshot := Snapshot{
		CurrentFile:    playback.CurrentFile,
		CurrentDisplay: playback.CurrentDisplay,
		CurrentCover:   playback.CurrentCover,
		IsPlaying:      playback.IsPlaying,
		LastProgressS:  effectivePosition(playback, now),
		LastUpdatedAt:  now,
		Queue:          queueFromRepo(queue),
		CurrentIndex:   playback.CurrentIndex,
		MemberCount:    memberCount,
	}

	return JoinRoomResponse{
		Snapshot:    snapshot,
		MemberCount: memberCount,
		Conns:       s.connRepo.GetConnsByRoomID(params.RoomID),
	}, nil
}

type DisconnectResponse struct {
	RoomID      string
	ClientID    string
	MemberCount int
	RoomEmptied bool
	Conns       []*wsrouter.Conn
}

// DisconnectClient unregisters the connection. When the last member leaves,
// the room's transport state is reset but the room itself survives for
// rejoins with the same code.
func (s *service) DisconnectClient(ctx context.Context, conn *wsrouter.Conn) (DisconnectResponse, error) {
	clientID, roomID, err := s.connRepo.RemoveByConn(conn)
	if err != nil {
		if errors.Is(err, connection.ErrNotFound) {
			return DisconnectResponse{}, ErrNotInRoom
		}
		return DisconnectResponse{}, fmt.Errorf("failed to remove connection: %w", err)
	}

	memberCount := s.connRepo.CountByRoomID(roomID)
	slog.Info("client left room", "roomID", roomID, "clientID", clientID, "members", memberCount)

	resp := DisconnectResponse{
		RoomID:      roomID,
		ClientID:    clientID,
		MemberCount: memberCount,
		Conns:       s.connRepo.GetConnsByRoomID(roomID),
	}

	if memberCount > 0 {
		return resp, nil
	}

	// empty room: stop playback, drop the loaded track and the queue
	if err := s.roomRepo.UpdateCurrentTrack(ctx, &room.UpdateCurrentTrackParams{
		RoomID:        roomID,
		CurrentFile:   "",
		CurrentIndex:  -1,
		IsPlaying:     false,
		LastProgressS: 0,
		LastUpdatedAt: unixSeconds(s.now()),
	}); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		return DisconnectResponse{}, fmt.Errorf("failed to reset room: %w", err)
	}

	if err := s.roomRepo.ClearQueue(ctx, roomID); err != nil {
		return DisconnectResponse{}, fmt.Errorf("failed to clear queue: %w", err)
	}

	resp.RoomEmptied = true

	return resp, nil
}
