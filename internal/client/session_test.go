package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundsync/server/internal/protocol"
)

type fakePlayer struct {
	loaded    string
	playing   bool
	seeking   bool
	position  float64
	rate      float64
	playCalls int
	pauses    int
	seeks     []float64
}

func (f *fakePlayer) Load(filename string) {
	f.loaded = filename
	f.playing = false
	f.position = 0
}

func (f *fakePlayer) Play() {
	f.playing = true
	f.playCalls++
}

func (f *fakePlayer) Pause() {
	f.playing = false
	f.pauses++
}

func (f *fakePlayer) Playing() bool { return f.playing }

func (f *fakePlayer) Position() float64 { return f.position }

func (f *fakePlayer) SetPosition(seconds float64) {
	f.position = seconds
	f.seeks = append(f.seeks, seconds)
}

func (f *fakePlayer) SetRate(rate float64) { f.rate = rate }

func (f *fakePlayer) Seeking() bool { return f.seeking }

type sentEvent struct {
	Type    string
	Payload any
}

type fakeSender struct {
	events []sentEvent
}

func (f *fakeSender) Send(eventType string, payload any) error {
	f.events = append(f.events, sentEvent{Type: eventType, Payload: payload})
	return nil
}

func (f *fakeSender) ofType(eventType string) []sentEvent {
	var out []sentEvent
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	return b
}

func newTestSession(t *testing.T, localNow float64) (*Session, *fakePlayer, *fakeSender) {
	t.Helper()

	player := &fakePlayer{rate: 1.0}
	sender := &fakeSender{}
	s := NewSession(player, sender, Config{Room: "abc123"})
	s.now = func() time.Time {
		return time.Unix(0, int64(localNow*1e9))
	}

	return s, player, sender
}

// setOffset fixes the clock's estimate with a zero-RTT probe.
func setOffset(s *Session, offset float64) {
	s.clock.BeginProbe(0)
	s.clock.CompleteProbe(offset, 0)
}

func strptr(s string) *string { return &s }

func TestSession_JoinSnapshotWhilePlaying(t *testing.T) {
	t.Parallel()

	// server clock is at 1005 while the local clock reads 2000
	s, player, _ := newTestSession(t, 2000.0)
	setOffset(s, -995.0)

	err := s.Handle(protocol.EventRoomState, payload(t, protocol.RoomState{
		ClientID:      "c1",
		CurrentFile:   strptr("track.mp3"),
		IsPlaying:     true,
		LastProgressS: 10.0,
		LastUpdatedAt: 1000.0,
		CurrentIndex:  0,
		MemberCount:   2,
	}))
	require.NoError(t, err)

	// position 10.0 captured 5 server-seconds ago projects to 15.0
	assert.Equal(t, "track.mp3", player.loaded)
	assert.InDelta(t, 15.0, player.position, 1e-9)
	assert.True(t, player.playing)
	assert.Equal(t, "c1", s.ClientID())
	assert.Equal(t, 2, s.MemberCount())
}

func TestSession_JoinSnapshotWhilePaused(t *testing.T) {
	t.Parallel()

	s, player, _ := newTestSession(t, 2000.0)

	err := s.Handle(protocol.EventRoomState, payload(t, protocol.RoomState{
		ClientID:      "c1",
		CurrentFile:   strptr("track.mp3"),
		IsPlaying:     false,
		LastProgressS: 42.3,
		LastUpdatedAt: 1000.0,
	}))
	require.NoError(t, err)

	// a paused snapshot is taken at face value, no projection
	assert.InDelta(t, 42.3, player.position, 1e-9)
	assert.False(t, player.playing)
	assert.Zero(t, player.playCalls)
}

func TestSession_ScheduledPlayAtTarget(t *testing.T) {
	t.Parallel()

	s, player, _ := newTestSession(t, 2000.0)

	err := s.Handle(protocol.EventScheduledPlay, payload(t, protocol.ScheduledPlay{
		AudioTime:       0,
		TargetTimestamp: 2000.0,
	}))
	require.NoError(t, err)

	assert.InDelta(t, 0.0, player.position, 1e-9)
	assert.True(t, player.playing)
}

func TestSession_ScheduledPlayPastTargetCatchesUp(t *testing.T) {
	t.Parallel()

	s, player, _ := newTestSession(t, 2000.0)

	err := s.Handle(protocol.EventScheduledPlay, payload(t, protocol.ScheduledPlay{
		AudioTime:       10.0,
		TargetTimestamp: 1999.7,
	}))
	require.NoError(t, err)

	// target 0.3s in the past, start at the caught-up position
	assert.InDelta(t, 10.3, player.position, 1e-9)
	assert.True(t, player.playing)
}

func TestSession_OriginatorAppliesOwnScheduledPlay(t *testing.T) {
	t.Parallel()

	s, player, _ := newTestSession(t, 2000.0)
	require.NoError(t, s.Handle(protocol.EventRoomState, payload(t, protocol.RoomState{ClientID: "c1"})))

	err := s.Handle(protocol.EventScheduledPlay, payload(t, protocol.ScheduledPlay{
		AudioTime:       5.0,
		TargetTimestamp: 2000.0,
		SenderID:        "c1",
	}))
	require.NoError(t, err)

	// sender_id filtering blocks re-emission, never application
	assert.True(t, player.playing)
	assert.InDelta(t, 5.0, player.position, 1e-9)
}

func TestSession_OwnPauseEchoIgnored(t *testing.T) {
	t.Parallel()

	s, player, sender := newTestSession(t, 2000.0)
	require.NoError(t, s.Handle(protocol.EventRoomState, payload(t, protocol.RoomState{ClientID: "c1"})))

	player.playing = true
	player.position = 42.3

	require.NoError(t, s.OnLocalPause())
	require.Len(t, sender.ofType(protocol.EventPause), 1)

	// the server echoes the pause back with our own sender id
	err := s.Handle(protocol.EventPause, payload(t, protocol.TransportBroadcast{
		Time:     42.3,
		SenderID: "c1",
	}))
	require.NoError(t, err)

	// not re-applied, and no second pause emitted
	assert.Zero(t, player.pauses)
	assert.Len(t, sender.ofType(protocol.EventPause), 1)
}

func TestSession_RemotePauseApplied(t *testing.T) {
	t.Parallel()

	s, player, _ := newTestSession(t, 2000.0)
	require.NoError(t, s.Handle(protocol.EventRoomState, payload(t, protocol.RoomState{ClientID: "c1"})))

	player.playing = true

	err := s.Handle(protocol.EventPause, payload(t, protocol.TransportBroadcast{
		Time:     42.3,
		SenderID: "c2",
	}))
	require.NoError(t, err)

	assert.False(t, player.playing)
	assert.InDelta(t, 42.3, player.position, 1e-9)
}

func TestSession_SuppressionWindowSwallowsNativeCallbacks(t *testing.T) {
	t.Parallel()

	s, player, sender := newTestSession(t, 2000.0)
	require.NoError(t, s.Handle(protocol.EventRoomState, payload(t, protocol.RoomState{ClientID: "c1"})))

	player.playing = true

	// a remote pause arms the suppression window
	require.NoError(t, s.Handle(protocol.EventPause, payload(t, protocol.TransportBroadcast{
		Time:     10.0,
		SenderID: "c2",
	})))

	// the player's native pause callback fires inside the window
	require.NoError(t, s.OnLocalPause())
	assert.Empty(t, sender.ofType(protocol.EventPause))
}

func TestSession_ServerSyncSoftCorrection(t *testing.T) {
	t.Parallel()

	// local clock runs 0.2s behind the server
	s, player, _ := newTestSession(t, 999.9)
	setOffset(s, 0.2)

	player.playing = true
	player.position = 100.2

	err := s.Handle(protocol.EventServerSync, payload(t, protocol.ServerSync{
		AudioTime:  100.0,
		ServerTime: 1000.0,
	}))
	require.NoError(t, err)

	// server progress projects to 100.1, drift 0.1 lands in the soft band
	assert.InDelta(t, 0.95, player.rate, 1e-9)
	assert.Empty(t, player.seeks)
}

func TestSession_ServerSyncHardCorrection(t *testing.T) {
	t.Parallel()

	s, player, _ := newTestSession(t, 1000.0)

	player.playing = true
	player.position = 101.0

	err := s.Handle(protocol.EventServerSync, payload(t, protocol.ServerSync{
		AudioTime:  100.0,
		ServerTime: 1000.0,
	}))
	require.NoError(t, err)

	require.Len(t, player.seeks, 1)
	assert.InDelta(t, 100.0, player.seeks[0], 1e-9)
	assert.InDelta(t, 1.0, player.rate, 1e-9)
}

func TestSession_ServerSyncSkippedWhilePaused(t *testing.T) {
	t.Parallel()

	s, player, _ := newTestSession(t, 1000.0)

	player.position = 90.0

	err := s.Handle(protocol.EventServerSync, payload(t, protocol.ServerSync{
		AudioTime:  100.0,
		ServerTime: 1000.0,
	}))
	require.NoError(t, err)

	assert.Empty(t, player.seeks)
	assert.InDelta(t, 1.0, player.rate, 1e-9)
}

func TestSession_ServerSyncSkippedAfterUserSeek(t *testing.T) {
	t.Parallel()

	s, player, sender := newTestSession(t, 1000.0)

	player.playing = true
	player.position = 90.0

	require.NoError(t, s.OnLocalSeek(90.0))
	require.Len(t, sender.ofType(protocol.EventSeek), 1)

	err := s.Handle(protocol.EventServerSync, payload(t, protocol.ServerSync{
		AudioTime:  100.0,
		ServerTime: 1000.0,
	}))
	require.NoError(t, err)

	// still inside the seek debounce, the heartbeat is ignored
	assert.Empty(t, player.seeks)
}

func TestSession_NewFileLoadsAtZero(t *testing.T) {
	t.Parallel()

	s, player, _ := newTestSession(t, 1000.0)

	player.playing = true
	player.position = 55.0

	err := s.Handle(protocol.EventNewFile, payload(t, protocol.NewFile{
		Filename:        strptr("next.mp3"),
		FilenameDisplay: strptr("Next Song"),
	}))
	require.NoError(t, err)

	assert.Equal(t, "next.mp3", player.loaded)
	assert.InDelta(t, 0.0, player.position, 1e-9)
	assert.Equal(t, "next.mp3", s.CurrentFile())
}

func TestSession_QueueUpdate(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestSession(t, 1000.0)

	err := s.Handle(protocol.EventQueueUpdate, payload(t, protocol.QueueUpdate{
		Queue: []protocol.Track{
			{Filename: "a.mp3", FilenameDisplay: "A"},
			{Filename: "b.mp3", FilenameDisplay: "B"},
		},
		CurrentIndex: 1,
	}))
	require.NoError(t, err)

	queue, currentIndex := s.Queue()
	assert.Len(t, queue, 2)
	assert.Equal(t, 1, currentIndex)
}

func TestSession_TrackEndedRequestsAutoAdvance(t *testing.T) {
	t.Parallel()

	s, _, sender := newTestSession(t, 1000.0)

	require.NoError(t, s.OnTrackEnded())

	events := sender.ofType(protocol.EventNextSong)
	require.Len(t, events, 1)
	assert.Equal(t, protocol.NextSong{Room: "abc123", AutoPlay: true}, events[0].Payload)
}

func TestSession_ErrorSurfaced(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestSession(t, 1000.0)

	var got string
	s.OnError = func(message string) { got = message }

	err := s.Handle(protocol.EventError, payload(t, protocol.Error{Message: "Room not found."}))
	require.NoError(t, err)

	assert.Equal(t, "Room not found.", got)
}

func TestSession_UnknownEventIgnored(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestSession(t, 1000.0)

	assert.NoError(t, s.Handle("lyrics_update", json.RawMessage(`{}`)))
}
