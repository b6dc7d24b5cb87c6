package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundsync/server/internal/protocol"
	"github.com/soundsync/server/internal/repository/connection/inmemory"
	"github.com/soundsync/server/internal/repository/file/disk"
	redisrepo "github.com/soundsync/server/internal/repository/room/redis"
	"github.com/soundsync/server/internal/service/room"
	"github.com/soundsync/server/pkg/wsrouter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newUploadServer wires a real service against miniredis and a temp upload
// dir, creates one room, and serves the controller mux.
func newUploadServer(t *testing.T, cfg *room.Config) (ts *httptest.Server, roomID, dir string) {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	svc := room.NewService(redisrepo.NewRepo(rc, time.Hour), inmemory.NewRepo(), cfg)
	createResp, err := svc.CreateRoom(context.Background())
	require.NoError(t, err)

	dir = t.TempDir()
	fileRepo, err := disk.NewRepo(dir)
	require.NoError(t, err)

	ts = httptest.NewServer(NewController(svc, fileRepo, testLogger()).GetMux())
	t.Cleanup(ts.Close)

	return ts, createResp.RoomID, dir
}

func defaultServiceConfig() *room.Config {
	return &room.Config{
		MembersLimit:        10,
		QueueLimit:          20,
		ScheduledPlayBuffer: 300 * time.Millisecond,
		AutoAdvanceBuffer:   500 * time.Millisecond,
	}
}

func uploadFile(t *testing.T, baseURL, roomID, filename string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("room", roomID))
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, "not really audio")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := http.Post(baseURL+"/api/v1/upload", w.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func TestUploadTrack_StoresFile(t *testing.T) {
	t.Parallel()

	ts, roomID, dir := newUploadServer(t, defaultServiceConfig())

	resp := uploadFile(t, ts.URL, roomID, "song.mp3")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var track protocol.Track
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&track))
	assert.Equal(t, "song.mp3", track.Filename)

	assert.Equal(t, []string{"song.mp3"}, dirEntries(t, dir))
}

func TestUploadTrack_UnknownRoomLeavesNoFile(t *testing.T) {
	t.Parallel()

	ts, _, dir := newUploadServer(t, defaultServiceConfig())

	resp := uploadFile(t, ts.URL, "nosuch", "orphan.mp3")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// a rejected upload must not write anything to disk
	assert.Empty(t, dirEntries(t, dir))
}

func TestUploadTrack_QueueLimitRemovesStoredFile(t *testing.T) {
	t.Parallel()

	cfg := defaultServiceConfig()
	cfg.QueueLimit = 1
	ts, roomID, dir := newUploadServer(t, cfg)

	resp := uploadFile(t, ts.URL, roomID, "first.mp3")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = uploadFile(t, ts.URL, roomID, "second.mp3")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// the over-limit upload was cleaned up, the accepted one kept
	assert.Equal(t, []string{"first.mp3"}, dirEntries(t, dir))
}

type fakeRoomService struct {
	iRoomService
	calls []string
}

func (f *fakeRoomService) GetClientRoom(*wsrouter.Conn) (string, string, error) {
	f.calls = append(f.calls, "resolve")
	return "c1", "abc123", nil
}

func (f *fakeRoomService) LockRoom(string) func() {
	f.calls = append(f.calls, "lock")
	return func() { f.calls = append(f.calls, "unlock") }
}

func (f *fakeRoomService) DisconnectClient(context.Context, *wsrouter.Conn) (room.DisconnectResponse, error) {
	f.calls = append(f.calls, "disconnect")
	return room.DisconnectResponse{RoomID: "abc123"}, nil
}

func TestDisconnect_LocksBeforeStateChange(t *testing.T) {
	t.Parallel()

	fake := &fakeRoomService{}
	c := controller{roomService: fake, logger: testLogger()}

	c.disconnect(context.Background(), wsrouter.NewConn(nil))

	assert.Equal(t, []string{"resolve", "lock", "disconnect", "unlock"}, fake.calls)
}
