package controller

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/soundsync/server/internal/service/room"
	"github.com/soundsync/server/pkg/validator"
	"github.com/soundsync/server/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context) (room.CreateRoomResponse, error)
	RoomExists(context.Context, string) (bool, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	DisconnectClient(context.Context, *wsrouter.Conn) (room.DisconnectResponse, error)
	GetClientRoom(*wsrouter.Conn) (clientID, roomID string, err error)
	LockRoom(roomID string) func()
	ServerTime() float64

	Play(context.Context, *room.PlayParams) (room.PlayResponse, error)
	Pause(context.Context, *room.PauseParams) (room.PauseResponse, error)
	Seek(context.Context, *room.SeekParams) (room.SeekResponse, error)
	Resync(context.Context, *room.ResyncParams) (room.ResyncResponse, error)
	PlayingRooms(context.Context) []room.RoomSync

	AddTrack(context.Context, *room.AddTrackParams) (room.AddTrackResponse, error)
	GetQueue(context.Context, *room.GetQueueParams) (room.GetQueueResponse, error)
	PlayFromQueue(context.Context, *room.PlayFromQueueParams) (room.TrackChangeResponse, error)
	RemoveFromQueue(context.Context, *room.RemoveFromQueueParams) (room.RemoveFromQueueResponse, error)
	NextTrack(context.Context, *room.NextTrackParams) (room.TrackChangeResponse, error)
	PreviousTrack(context.Context, *room.PreviousTrackParams) (room.TrackChangeResponse, error)
}

type iFileStore interface {
	SaveTrack(filename string, src io.Reader) (stored, cover string, err error)
	Remove(filename string) error
	Dir() string
}

type controller struct {
	roomService iRoomService
	fileStore   iFileStore
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
}

func NewController(roomService iRoomService, fileStore iFileStore, logger *slog.Logger) *controller {
	return &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		fileStore:   fileStore,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
}
