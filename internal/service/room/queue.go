package room

import (
	"context"
	"fmt"

	"github.com/soundsync/server/internal/repository/room"
	"github.com/soundsync/server/pkg/wsrouter"
)

type AddTrackParams struct {
	RoomID          string
	Filename        string
	FilenameDisplay string
	Cover           string
}

type AddTrackResponse struct {
	Queue        []Track
	CurrentIndex int
	// NewCurrent is set when the room had no track loaded and the added one
	// became current.
	NewCurrent *Track
	Conns      []*wsrouter.Conn
}

func (s *service) AddTrack(ctx context.Context, params *AddTrackParams) (AddTrackResponse, error) {
	playback, err := s.getPlayback(ctx, params.RoomID)
	if err != nil {
		return AddTrackResponse{}, err
	}

	queueLength, err := s.roomRepo.GetQueueLength(ctx, params.RoomID)
	if err != nil {
		return AddTrackResponse{}, fmt.Errorf("failed to get queue length: %w", err)
	}
	if queueLength >= s.config.QueueLimit {
		return AddTrackResponse{}, ErrQueueLimitReached
	}

	track := room.Track{
		Filename:        params.Filename,
		FilenameDisplay: params.FilenameDisplay,
		Cover:           params.Cover,
		UploadTime:      unixSeconds(s.now()),
	}
	length, err := s.roomRepo.AppendTrack(ctx, &room.AppendTrackParams{
		RoomID: params.RoomID,
		Track:  track,
	})
	if err != nil {
		return AddTrackResponse{}, fmt.Errorf("failed to append track: %w", err)
	}

	resp := AddTrackResponse{CurrentIndex: playback.CurrentIndex}

	if playback.CurrentFile == "" {
		resp.CurrentIndex = length - 1
		if err := s.roomRepo.UpdateCurrentTrack(ctx, &room.UpdateCurrentTrackParams{
			RoomID:         params.RoomID,
			CurrentFile:    track.Filename,
			CurrentDisplay: track.FilenameDisplay,
			CurrentCover:   track.Cover,
			CurrentIndex:   resp.CurrentIndex,
			IsPlaying:      false,
			LastProgressS:  0,
			LastUpdatedAt:  unixSeconds(s.now()),
		}); err != nil {
			return AddTrackResponse{}, fmt.Errorf("failed to update current track: %w", err)
		}

		current := trackFromRepo(track)
		resp.NewCurrent = &current
	}

	queue, err := s.roomRepo.GetQueue(ctx, params.RoomID)
	if err != nil {
		return AddTrackResponse{}, fmt.Errorf("failed to get queue: %w", err)
	}

	resp.Queue = queueFromRepo(queue)
	resp.Conns = s.connRepo.GetConnsByRoomID(params.RoomID)

	return resp, nil
}

type TrackChangeResponse struct {
	Track        Track
	Queue        []Track
	CurrentIndex int
	// AutoPlay indicates the change came from auto-advance: the response
	// carries a scheduled start instead of a pause at zero.
	AutoPlay        bool
	AudioTime       float64
	TargetTimestamp float64
	Conns           []*wsrouter.Conn
}

func (s *service) setCurrent(ctx context.Context, roomID string, index int, track room.Track, playing bool) error {
	return s.roomRepo.UpdateCurrentTrack(ctx, &room.UpdateCurrentTrackParams{
		RoomID:         roomID,
		CurrentFile:    track.Filename,
		CurrentDisplay: track.FilenameDisplay,
		CurrentCover:   track.Cover,
		CurrentIndex:   index,
		IsPlaying:      playing,
		LastProgressS:  0,
		LastUpdatedAt:  unixSeconds(s.now()),
	})
}

func (s *service) trackChangeResponse(ctx context.Context, roomID string, index int, track room.Track) (TrackChangeResponse, error) {
	queue, err := s.roomRepo.GetQueue(ctx, roomID)
	if err != nil {
		return TrackChangeResponse{}, fmt.Errorf("failed to get queue: %w", err)
	}

	return TrackChangeResponse{
		Track:        trackFromRepo(track),
		Queue:        queueFromRepo(queue),
		CurrentIndex: index,
		Conns:        s.connRepo.GetConnsByRoomID(roomID),
	}, nil
}

type PlayFromQueueParams struct {
	RoomID string
	Index  int
}

func (s *service) PlayFromQueue(ctx context.Context, params *PlayFromQueueParams) (TrackChangeResponse, error) {
	exists, err := s.roomRepo.IsRoomExists(ctx, params.RoomID)
	if err != nil {
		return TrackChangeResponse{}, fmt.Errorf("failed to check if room exists: %w", err)
	}
	if !exists {
		return TrackChangeResponse{}, ErrRoomNotFound
	}

	track, err := s.roomRepo.GetTrack(ctx, params.RoomID, params.Index)
	if err != nil {
		return TrackChangeResponse{}, ErrInvalidQueueIndex
	}

	if err := s.setCurrent(ctx, params.RoomID, params.Index, track, false); err != nil {
		return TrackChangeResponse{}, fmt.Errorf("failed to update current track: %w", err)
	}

	return s.trackChangeResponse(ctx, params.RoomID, params.Index, track)
}

type NextTrackParams struct {
	RoomID   string
	AutoPlay bool
}

// NextTrack advances to the next queued track, wrapping to the start. With
// AutoPlay (track ended on its own) the room begins playing after a load
// buffer; a manual skip lands paused at zero.
func (s *service) NextTrack(ctx context.Context, params *NextTrackParams) (TrackChangeResponse, error) {
	playback, err := s.getPlayback(ctx, params.RoomID)
	if err != nil {
		return TrackChangeResponse{}, err
	}

	queueLength, err := s.roomRepo.GetQueueLength(ctx, params.RoomID)
	if err != nil {
		return TrackChangeResponse{}, fmt.Errorf("failed to get queue length: %w", err)
	}
	if queueLength == 0 {
		return TrackChangeResponse{}, ErrEmptyQueue
	}

	nextIndex := playback.CurrentIndex + 1
	if nextIndex >= queueLength {
		nextIndex = 0
	}

	track, err := s.roomRepo.GetTrack(ctx, params.RoomID, nextIndex)
	if err != nil {
		return TrackChangeResponse{}, fmt.Errorf("failed to get track: %w", err)
	}

	if err := s.setCurrent(ctx, params.RoomID, nextIndex, track, params.AutoPlay); err != nil {
		return TrackChangeResponse{}, fmt.Errorf("failed to update current track: %w", err)
	}

	resp, err := s.trackChangeResponse(ctx, params.RoomID, nextIndex, track)
	if err != nil {
		return TrackChangeResponse{}, err
	}

	if params.AutoPlay {
		resp.AutoPlay = true
		resp.AudioTime = 0
		resp.TargetTimestamp = unixSeconds(s.now()) + s.config.AutoAdvanceBuffer.Seconds()
	}

	return resp, nil
}

type PreviousTrackParams struct {
	RoomID string
}

func (s *service) PreviousTrack(ctx context.Context, params *PreviousTrackParams) (TrackChangeResponse, error) {
	playback, err := s.getPlayback(ctx, params.RoomID)
	if err != nil {
		return TrackChangeResponse{}, err
	}

	queueLength, err := s.roomRepo.GetQueueLength(ctx, params.RoomID)
	if err != nil {
		return TrackChangeResponse{}, fmt.Errorf("failed to get queue length: %w", err)
	}
	if queueLength == 0 {
		return TrackChangeResponse{}, ErrEmptyQueue
	}

	prevIndex := playback.CurrentIndex - 1
	if prevIndex < 0 {
		prevIndex = queueLength - 1
	}

	track, err := s.roomRepo.GetTrack(ctx, params.RoomID, prevIndex)
	if err != nil {
		return TrackChangeResponse{}, fmt.Errorf("failed to get track: %w", err)
	}

	if err := s.setCurrent(ctx, params.RoomID, prevIndex, track, false); err != nil {
		return TrackChangeResponse{}, fmt.Errorf("failed to update current track: %w", err)
	}

	return s.trackChangeResponse(ctx, params.RoomID, prevIndex, track)
}

type RemoveFromQueueParams struct {
	RoomID string
	Index  int
}

type RemoveFromQueueResponse struct {
	Queue        []Track
	CurrentIndex int
	// CurrentChanged is set when the removed track was the current one.
	// NewCurrent is the replacement, or nil when the queue emptied out.
	CurrentChanged bool
	NewCurrent     *Track
	Conns          []*wsrouter.Conn
}

func (s *service) RemoveFromQueue(ctx context.Context, params *RemoveFromQueueParams) (RemoveFromQueueResponse, error) {
	playback, err := s.getPlayback(ctx, params.RoomID)
	if err != nil {
		return RemoveFromQueueResponse{}, err
	}

	queueLength, err := s.roomRepo.GetQueueLength(ctx, params.RoomID)
	if err != nil {
		return RemoveFromQueueResponse{}, fmt.Errorf("failed to get queue length: %w", err)
	}
	if params.Index < 0 || params.Index >= queueLength {
		return RemoveFromQueueResponse{}, ErrInvalidQueueIndex
	}

	if err := s.roomRepo.RemoveTrack(ctx, &room.RemoveTrackParams{
		RoomID: params.RoomID,
		Index:  params.Index,
	}); err != nil {
		return RemoveFromQueueResponse{}, fmt.Errorf("failed to remove track: %w", err)
	}
	queueLength--

	resp := RemoveFromQueueResponse{CurrentIndex: playback.CurrentIndex}

	switch {
	case params.Index == playback.CurrentIndex:
		resp.CurrentChanged = true

		newIndex := params.Index
		if newIndex >= queueLength {
			newIndex = queueLength - 1
		}

		if newIndex < 0 {
			// queue emptied out, clear the loaded track
			resp.CurrentIndex = -1
			if err := s.roomRepo.UpdateCurrentTrack(ctx, &room.UpdateCurrentTrackParams{
				RoomID:        params.RoomID,
				CurrentFile:   "",
				CurrentIndex:  -1,
				IsPlaying:     false,
				LastProgressS: 0,
				LastUpdatedAt: unixSeconds(s.now()),
			}); err != nil {
				return RemoveFromQueueResponse{}, fmt.Errorf("failed to clear current track: %w", err)
			}
		} else {
			track, err := s.roomRepo.GetTrack(ctx, params.RoomID, newIndex)
			if err != nil {
				return RemoveFromQueueResponse{}, fmt.Errorf("failed to get track: %w", err)
			}

			if err := s.setCurrent(ctx, params.RoomID, newIndex, track, false); err != nil {
				return RemoveFromQueueResponse{}, fmt.Errorf("failed to update current track: %w", err)
			}

			resp.CurrentIndex = newIndex
			current := trackFromRepo(track)
			resp.NewCurrent = &current
		}

	case params.Index < playback.CurrentIndex:
		resp.CurrentIndex = playback.CurrentIndex - 1
		if err := s.roomRepo.UpdateCurrentTrack(ctx, &room.UpdateCurrentTrackParams{
			RoomID:         params.RoomID,
			CurrentFile:    playback.CurrentFile,
			CurrentDisplay: playback.CurrentDisplay,
			CurrentCover:   playback.CurrentCover,
			CurrentIndex:   resp.CurrentIndex,
			IsPlaying:      playback.IsPlaying,
			LastProgressS:  playback.LastProgressS,
			LastUpdatedAt:  playback.LastUpdatedAt,
		}); err != nil {
			return RemoveFromQueueResponse{}, fmt.Errorf("failed to update current index: %w", err)
		}
	}

	queue, err := s.roomRepo.GetQueue(ctx, params.RoomID)
	if err != nil {
		return RemoveFromQueueResponse{}, fmt.Errorf("failed to get queue: %w", err)
	}

	resp.Queue = queueFromRepo(queue)
	resp.Conns = s.connRepo.GetConnsByRoomID(params.RoomID)

	return resp, nil
}

type GetQueueParams struct {
	RoomID string
}

type GetQueueResponse struct {
	Queue        []Track
	CurrentIndex int
}

func (s *service) GetQueue(ctx context.Context, params *GetQueueParams) (GetQueueResponse, error) {
	playback, err := s.getPlayback(ctx, params.RoomID)
	if err != nil {
		return GetQueueResponse{}, err
	}

	queue, err := s.roomRepo.GetQueue(ctx, params.RoomID)
	if err != nil {
		return GetQueueResponse{}, fmt.Errorf("failed to get queue: %w", err)
	}

	return GetQueueResponse{
		Queue:        queueFromRepo(queue),
		CurrentIndex: playback.CurrentIndex,
	}, nil
}
