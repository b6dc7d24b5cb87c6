package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/soundsync/server/internal/protocol"
)

type sender interface {
	Send(eventType string, payload any) error
}

type Config struct {
	Room string
	// ProbeInterval is the clock sync cadence.
	ProbeInterval time.Duration
	// SuppressWindow covers the player's native events fired by a remote
	// apply, so they are not re-forwarded to the server.
	SuppressWindow time.Duration
	// SeekDebounce keeps drift correction from fighting a seek the user just
	// made. A new user seek resets it.
	SeekDebounce time.Duration
}

func (c *Config) setDefaults() {
	if c.ProbeInterval == 0 {
		c.ProbeInterval = 15 * time.Second
	}
	if c.SuppressWindow == 0 {
		c.SuppressWindow = 120 * time.Millisecond
	}
	if c.SeekDebounce == 0 {
		c.SeekDebounce = time.Second
	}
}

// Session holds all client-side mutable state for one room connection and
// routes events both ways: server broadcasts into the local player, local
// player actions out to the server. Echo suppression is two-layered. Every
// broadcast carries the originator's sender_id, so the session drops echoes of
// its own commands by id; the suppression window additionally guards the
// player's native callbacks fired while a remote command is being applied.
type Session struct {
	cfg    Config
	clock  *Clock
	player Player
	send   sender
	now    func() time.Time

	// OnError, when set, receives room-level errors surfaced by the server.
	OnError func(message string)

	mu            sync.Mutex
	clientID      string
	currentFile   string
	queue         []protocol.Track
	currentIndex  int
	memberCount   int
	suppressUntil time.Time
	lastUserSeek  time.Time
}

func NewSession(player Player, send sender, cfg Config) *Session {
	cfg.setDefaults()

	return &Session{
		cfg:          cfg,
		clock:        NewClock(),
		player:       player,
		send:         send,
		now:          time.Now,
		currentIndex: -1,
	}
}

func (s *Session) Clock() *Clock { return s.clock }

func (s *Session) unixNow() float64 {
	return float64(s.now().UnixNano()) / 1e9
}

// Join enters the configured room. The server answers with a room_state
// snapshot handled by Handle.
func (s *Session) Join() error {
	return s.send.Send(protocol.EventJoin, protocol.Join{Room: s.cfg.Room})
}

// RunClockProbes keeps the clock offset fresh until ctx is canceled. The first
// probe fires immediately.
func (s *Session) RunClockProbes(ctx context.Context) {
	s.sendProbe()

	ticker := time.NewTicker(s.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendProbe()
		}
	}
}

func (s *Session) sendProbe() {
	s.clock.BeginProbe(s.unixNow())
	s.send.Send(protocol.EventClientPing, struct{}{})
}

// Handle routes one server event. Unknown event types are ignored, so the
// server is free to grow the protocol.
func (s *Session) Handle(eventType string, payload json.RawMessage) error {
	switch eventType {
	case protocol.EventServerPong:
		return s.handleServerPong(payload)
	case protocol.EventRoomState:
		return s.handleRoomState(payload)
	case protocol.EventScheduledPlay:
		return s.handleScheduledPlay(payload)
	case protocol.EventPause:
		return s.handlePause(payload)
	case protocol.EventServerSync:
		return s.handleServerSync(payload)
	case protocol.EventNewFile:
		return s.handleNewFile(payload)
	case protocol.EventQueueUpdate:
		return s.handleQueueUpdate(payload)
	case protocol.EventMemberCountUpdate:
		return s.handleMemberCount(payload)
	case protocol.EventError:
		return s.handleError(payload)
	default:
		return nil
	}
}

func (s *Session) handleServerPong(payload json.RawMessage) error {
	var p protocol.ServerPong
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode server_pong: %w", err)
	}

	s.clock.CompleteProbe(p.Timestamp, s.unixNow())

	return nil
}

func (s *Session) handleRoomState(payload json.RawMessage) error {
	var p protocol.RoomState
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode room_state: %w", err)
	}

	s.mu.Lock()
	s.clientID = p.ClientID
	s.queue = p.Queue
	s.currentIndex = p.CurrentIndex
	s.memberCount = p.MemberCount
	if p.CurrentFile != nil {
		s.currentFile = *p.CurrentFile
	} else {
		s.currentFile = ""
	}
	s.mu.Unlock()

	if p.CurrentFile == nil {
		return nil
	}

	// project the snapshot position by the server time elapsed since it was
	// captured, then start (or sit paused) there
	position := p.LastProgressS
	if p.IsPlaying {
		position += s.clock.ServerNow(s.unixNow()) - p.LastUpdatedAt
	}

	s.applyRemote(func() {
		s.player.Load(*p.CurrentFile)
		s.player.SetPosition(position)
		s.player.SetRate(1.0)
		if p.IsPlaying {
			s.player.Play()
		}
	})

	return nil
}

// handleScheduledPlay applies a coordinated start. The originator applies it
// too; sender_id filtering only blocks re-emission, not application, so every
// member starts from the same schedule.
func (s *Session) handleScheduledPlay(payload json.RawMessage) error {
	var p protocol.ScheduledPlay
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode scheduled_play: %w", err)
	}

	localNow := s.unixNow()
	delay := s.clock.LocalDeadline(p.TargetTimestamp) - localNow

	if delay <= 0 {
		// target already passed, start at the caught-up position
		s.applyRemote(func() {
			s.player.SetPosition(p.AudioTime - delay)
			s.player.SetRate(1.0)
			s.player.Play()
		})

		return nil
	}

	// pre-seek now so the start itself is cheap
	s.applyRemote(func() {
		s.player.SetPosition(p.AudioTime)
		s.player.SetRate(1.0)
	})

	time.AfterFunc(time.Duration(delay*float64(time.Second)), func() {
		s.applyRemote(func() {
			s.player.Play()
		})
	})

	return nil
}

func (s *Session) handlePause(payload json.RawMessage) error {
	var p protocol.TransportBroadcast
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode pause: %w", err)
	}

	if s.isOwnEcho(p.SenderID) {
		return nil
	}

	s.applyRemote(func() {
		s.player.SetPosition(p.Time)
		s.player.Pause()
	})

	return nil
}

func (s *Session) handleServerSync(payload json.RawMessage) error {
	var p protocol.ServerSync
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode server_sync: %w", err)
	}

	now := s.now()
	if !s.player.Playing() || s.player.Seeking() {
		return nil
	}
	if s.suppressed(now) || s.withinSeekDebounce(now) {
		return nil
	}

	localNow := float64(now.UnixNano()) / 1e9
	progress := ServerProgress(p.AudioTime, p.ServerTime, s.clock.ServerNow(localNow))
	correction := CorrectDrift(s.player.Position(), progress)

	if correction.HardSeek {
		s.applyRemote(func() {
			s.player.SetPosition(correction.Position)
		})
	}
	s.player.SetRate(correction.Rate)

	return nil
}

func (s *Session) handleNewFile(payload json.RawMessage) error {
	var p protocol.NewFile
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode new_file: %w", err)
	}

	s.mu.Lock()
	if p.Filename != nil {
		s.currentFile = *p.Filename
	} else {
		s.currentFile = ""
	}
	s.mu.Unlock()

	s.applyRemote(func() {
		if p.Filename == nil {
			s.player.Pause()
			return
		}
		s.player.Load(*p.Filename)
		s.player.SetPosition(0)
		s.player.SetRate(1.0)
	})

	return nil
}

func (s *Session) handleQueueUpdate(payload json.RawMessage) error {
	var p protocol.QueueUpdate
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode queue_update: %w", err)
	}

	s.mu.Lock()
	s.queue = p.Queue
	s.currentIndex = p.CurrentIndex
	s.mu.Unlock()

	return nil
}

func (s *Session) handleMemberCount(payload json.RawMessage) error {
	var p protocol.MemberCountUpdate
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode member_count_update: %w", err)
	}

	s.mu.Lock()
	s.memberCount = p.Count
	s.mu.Unlock()

	return nil
}

func (s *Session) handleError(payload json.RawMessage) error {
	var p protocol.Error
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode error: %w", err)
	}

	if s.OnError != nil {
		s.OnError(p.Message)
	}

	return nil
}

// OnLocalPlay forwards a user-initiated play to the server. Native player
// events fired by a remote apply are swallowed here.
func (s *Session) OnLocalPlay() error {
	if s.suppressed(s.now()) {
		return nil
	}

	return s.send.Send(protocol.EventPlay, protocol.Transport{
		Room: s.cfg.Room,
		Time: s.player.Position(),
	})
}

func (s *Session) OnLocalPause() error {
	if s.suppressed(s.now()) {
		return nil
	}

	return s.send.Send(protocol.EventPause, protocol.Transport{
		Room: s.cfg.Room,
		Time: s.player.Position(),
	})
}

func (s *Session) OnLocalSeek(position float64) error {
	now := s.now()
	if s.suppressed(now) {
		return nil
	}

	s.mu.Lock()
	s.lastUserSeek = now
	s.mu.Unlock()

	return s.send.Send(protocol.EventSeek, protocol.Transport{
		Room: s.cfg.Room,
		Time: position,
	})
}

// OnTrackEnded asks the server to auto-advance, which comes back as a
// scheduled play after a load buffer.
func (s *Session) OnTrackEnded() error {
	return s.send.Send(protocol.EventNextSong, protocol.NextSong{
		Room:     s.cfg.Room,
		AutoPlay: true,
	})
}

func (s *Session) NextTrack() error {
	return s.send.Send(protocol.EventNextSong, protocol.NextSong{Room: s.cfg.Room})
}

func (s *Session) PreviousTrack() error {
	return s.send.Send(protocol.EventPreviousSong, protocol.PreviousSong{Room: s.cfg.Room})
}

// RequestResync asks the server to snap the whole room to this client's
// position.
func (s *Session) RequestResync() error {
	return s.send.Send(protocol.EventSync, protocol.Transport{
		Room: s.cfg.Room,
		Time: s.player.Position(),
	})
}

func (s *Session) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clientID
}

func (s *Session) CurrentFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentFile
}

func (s *Session) Queue() ([]protocol.Track, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queue, s.currentIndex
}

func (s *Session) MemberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.memberCount
}

// applyRemote runs a server-originated change against the player with the
// suppression window armed, so the player's resulting native callbacks do not
// bounce back to the server.
func (s *Session) applyRemote(fn func()) {
	s.mu.Lock()
	s.suppressUntil = s.now().Add(s.cfg.SuppressWindow)
	s.mu.Unlock()

	fn()
}

func (s *Session) suppressed(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return now.Before(s.suppressUntil)
}

func (s *Session) withinSeekDebounce(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.lastUserSeek.IsZero() && now.Sub(s.lastUserSeek) < s.cfg.SeekDebounce
}

func (s *Session) isOwnEcho(senderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return senderID != "" && senderID == s.clientID
}
