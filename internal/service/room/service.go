package room

import (
	"context"
	"sync"
	"time"

	"github.com/soundsync/server/internal/repository/room"
	"github.com/soundsync/server/pkg/randstr"
	"github.com/soundsync/server/pkg/wsrouter"
)

const roomIDLength = 6

type iRoomRepo interface {
	CreateRoom(context.Context, *room.CreateRoomParams) error
	IsRoomExists(context.Context, string) (bool, error)
	GetPlayback(context.Context, string) (room.Playback, error)
	UpdatePlaybackState(context.Context, *room.UpdatePlaybackStateParams) error
	UpdateCurrentTrack(context.Context, *room.UpdateCurrentTrackParams) error
	AppendTrack(context.Context, *room.AppendTrackParams) (int, error)
	GetQueue(context.Context, string) ([]room.Track, error)
	GetQueueLength(context.Context, string) (int, error)
	GetTrack(ctx context.Context, roomID string, index int) (room.Track, error)
	RemoveTrack(context.Context, *room.RemoveTrackParams) error
	ClearQueue(context.Context, string) error
}

type iConnRepo interface {
	Add(conn *wsrouter.Conn, clientID, roomID string) error
	RemoveByConn(conn *wsrouter.Conn) (clientID, roomID string, err error)
	GetClientID(conn *wsrouter.Conn) (string, error)
	GetRoomID(conn *wsrouter.Conn) (string, error)
	GetConnsByRoomID(roomID string) []*wsrouter.Conn
	CountByRoomID(roomID string) int
	GetRoomIDs() []string
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	MembersLimit        int
	QueueLimit          int
	ScheduledPlayBuffer time.Duration
	AutoAdvanceBuffer   time.Duration
}

type service struct {
	roomRepo  iRoomRepo
	connRepo  iConnRepo
	generator iGenerator
	config    *Config

	// roomLocks serializes state-changing commands per room so concurrent
	// members apply in a consistent order. Cross-room commands do not block
	// each other.
	roomLocks sync.Map

	now func() time.Time
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, config *Config) *service {
	s := service{
		roomRepo: roomRepo,
		connRepo: connRepo,
		config:   config,
		now:      time.Now,
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyz0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}

// LockRoom acquires the room's command lock and returns its release func.
// The edge holds it across apply-and-broadcast, so members never observe
// broadcasts in a different order than the server applied the commands.
func (s *service) LockRoom(roomID string) func() {
	v, _ := s.roomLocks.LoadOrStore(roomID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

// GetClientRoom resolves a live connection to the client and room it joined.
func (s *service) GetClientRoom(conn *wsrouter.Conn) (string, string, error) {
	clientID, err := s.connRepo.GetClientID(conn)
	if err != nil {
		return "", "", ErrNotInRoom
	}

	roomID, err := s.connRepo.GetRoomID(conn)
	if err != nil {
		return "", "", ErrNotInRoom
	}

	return clientID, roomID, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// ServerTime returns the authoritative wall-clock time in unix seconds. It is
// the value echoed to clock-sync probes.
func (s *service) ServerTime() float64 {
	return unixSeconds(s.now())
}
