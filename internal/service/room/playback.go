package room

import (
	"context"
	"fmt"

	"github.com/soundsync/server/internal/repository/room"
	"github.com/soundsync/server/pkg/wsrouter"
)

// effectivePosition computes the position the room should be at right now.
// This is the single place elapsed time is derived from the stored state.
func effectivePosition(p room.Playback, now float64) float64 {
	if !p.IsPlaying {
		return p.LastProgressS
	}

	return p.LastProgressS + (now - p.LastUpdatedAt)
}

type PlayParams struct {
	RoomID   string
	SenderID string
	Time     float64
}

type PlayResponse struct {
	AudioTime       float64
	TargetTimestamp float64
	Conns           []*wsrouter.Conn
}

// Play transitions the room to playing at the requested position and schedules
// a coordinated start slightly in the future, so slow-to-receive members still
// begin close to in-sync instead of catching up after the fact.
func (s *service) Play(ctx context.Context, params *PlayParams) (PlayResponse, error) {
	playback, err := s.getPlayback(ctx, params.RoomID)
	if err != nil {
		return PlayResponse{}, err
	}

	if playback.CurrentFile == "" {
		return PlayResponse{}, ErrNoTrackLoaded
	}

	now := unixSeconds(s.now())
	if err := s.roomRepo.UpdatePlaybackState(ctx, &room.UpdatePlaybackStateParams{
		RoomID:        params.RoomID,
		IsPlaying:     true,
		LastProgressS: params.Time,
		LastUpdatedAt: now,
	}); err != nil {
		return PlayResponse{}, fmt.Errorf("failed to update playback state: %w", err)
	}

	return PlayResponse{
		AudioTime:       params.Time,
		TargetTimestamp: now + s.config.ScheduledPlayBuffer.Seconds(),
		Conns:           s.connRepo.GetConnsByRoomID(params.RoomID),
	}, nil
}

type PauseParams struct {
	RoomID   string
	SenderID string
}

type PauseResponse struct {
	// Time is the effective position at the moment of pause, computed
	// server-side rather than trusted from the client.
	Time    float64
	Applied bool
	Conns   []*wsrouter.Conn
}

func (s *service) Pause(ctx context.Context, params *PauseParams) (PauseResponse, error) {
	playback, err := s.getPlayback(ctx, params.RoomID)
	if err != nil {
		return PauseResponse{}, err
	}

	if !playback.IsPlaying {
		return PauseResponse{Applied: false}, nil
	}

	now := unixSeconds(s.now())
	finalProgress := effectivePosition(playback, now)

	if err := s.roomRepo.UpdatePlaybackState(ctx, &room.UpdatePlaybackStateParams{
		RoomID:        params.RoomID,
		IsPlaying:     false,
		LastProgressS: finalProgress,
		LastUpdatedAt: now,
	}); err != nil {
		return PauseResponse{}, fmt.Errorf("failed to update playback state: %w", err)
	}

	return PauseResponse{
		Time:    finalProgress,
		Applied: true,
		Conns:   s.connRepo.GetConnsByRoomID(params.RoomID),
	}, nil
}

type SeekParams struct {
	RoomID   string
	SenderID string
	Time     float64
}

type SeekResponse struct {
	WasPlaying      bool
	AudioTime       float64
	TargetTimestamp float64
	Conns           []*wsrouter.Conn
}

// Seek moves the room position preserving the play/pause state. A seek while
// playing is re-broadcast as a scheduled play at the new position; a paused
// seek as a pause at it.
func (s *service) Seek(ctx context.Context, params *SeekParams) (SeekResponse, error) {
	playback, err := s.getPlayback(ctx, params.RoomID)
	if err != nil {
		return SeekResponse{}, err
	}

	now := unixSeconds(s.now())
	if err := s.roomRepo.UpdatePlaybackState(ctx, &room.UpdatePlaybackStateParams{
		RoomID:        params.RoomID,
		IsPlaying:     playback.IsPlaying,
		LastProgressS: params.Time,
		LastUpdatedAt: now,
	}); err != nil {
		return SeekResponse{}, fmt.Errorf("failed to update playback state: %w", err)
	}

	return SeekResponse{
		WasPlaying:      playback.IsPlaying,
		AudioTime:       params.Time,
		TargetTimestamp: now + s.config.ScheduledPlayBuffer.Seconds(),
		Conns:           s.connRepo.GetConnsByRoomID(params.RoomID),
	}, nil
}

type ResyncParams struct {
	RoomID string
	Time   float64
}

type ResyncResponse struct {
	AudioTime       float64
	TargetTimestamp float64
	Conns           []*wsrouter.Conn
}

// Resync re-broadcasts a scheduled play at the requester's position with a
// target already in the past, forcing every member to snap to it immediately.
func (s *service) Resync(ctx context.Context, params *ResyncParams) (ResyncResponse, error) {
	exists, err := s.roomRepo.IsRoomExists(ctx, params.RoomID)
	if err != nil {
		return ResyncResponse{}, fmt.Errorf("failed to check if room exists: %w", err)
	}
	if !exists {
		return ResyncResponse{}, ErrRoomNotFound
	}

	now := unixSeconds(s.now())

	return ResyncResponse{
		AudioTime:       params.Time,
		TargetTimestamp: now - s.config.ScheduledPlayBuffer.Seconds(),
		Conns:           s.connRepo.GetConnsByRoomID(params.RoomID),
	}, nil
}

type RoomSync struct {
	RoomID     string
	AudioTime  float64
	ServerTime float64
	Conns      []*wsrouter.Conn
}

// PlayingRooms snapshots every connected room that is currently playing, for
// the periodic server_sync heartbeat.
func (s *service) PlayingRooms(ctx context.Context) []RoomSync {
	var syncs []RoomSync
	for _, roomID := range s.connRepo.GetRoomIDs() {
		playback, err := s.roomRepo.GetPlayback(ctx, roomID)
		if err != nil || !playback.IsPlaying {
			continue
		}

		syncs = append(syncs, RoomSync{
			RoomID:     roomID,
			AudioTime:  playback.LastProgressS,
			ServerTime: playback.LastUpdatedAt,
			Conns:      s.connRepo.GetConnsByRoomID(roomID),
		})
	}

	return syncs
}
