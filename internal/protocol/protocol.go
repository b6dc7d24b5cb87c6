// Package protocol defines the wire events exchanged between the room server
// and its clients. Every message travels inside a {"type","payload"} envelope.
package protocol

// Client-to-server events.
const (
	EventJoin         = "join"
	EventClientPing   = "client_ping"
	EventPlay         = "play"
	EventPause        = "pause"
	EventSeek         = "seek"
	EventSync         = "sync"
	EventNextSong     = "next_song"
	EventPreviousSong = "previous_song"
)

// Server-to-client events.
const (
	EventServerPong        = "server_pong"
	EventRoomState         = "room_state"
	EventScheduledPlay     = "scheduled_play"
	EventServerSync        = "server_sync"
	EventNewFile           = "new_file"
	EventQueueUpdate       = "queue_update"
	EventMemberCountUpdate = "member_count_update"
	EventError             = "error"
)

// All time fields are float64 seconds. Wall-clock fields are unix seconds on
// the server's clock.

type Join struct {
	Room string `json:"room"`
}

// Transport is the shared payload of play/pause/seek/sync requests: the room
// and the audio position the command refers to.
type Transport struct {
	Room string  `json:"room"`
	Time float64 `json:"time"`
}

type NextSong struct {
	Room     string `json:"room"`
	AutoPlay bool   `json:"auto_play"`
}

type PreviousSong struct {
	Room string `json:"room"`
}

type ServerPong struct {
	Timestamp float64 `json:"timestamp"`
}

// TransportBroadcast echoes a pause or seek to the room. SenderID carries the
// originating client's id so the originator can discard its own echo.
type TransportBroadcast struct {
	Time     float64 `json:"time"`
	SenderID string  `json:"sender_id,omitempty"`
}

// ScheduledPlay coordinates a future start: every receiver seeks to AudioTime
// and begins playback when its (offset-corrected) clock reaches
// TargetTimestamp, absorbing propagation delay before audio starts.
type ScheduledPlay struct {
	AudioTime       float64 `json:"audio_time"`
	TargetTimestamp float64 `json:"target_timestamp"`
	SenderID        string  `json:"sender_id,omitempty"`
}

// ServerSync is the periodic drift-correction heartbeat.
type ServerSync struct {
	AudioTime  float64 `json:"audio_time"`
	ServerTime float64 `json:"server_time"`
}

type Track struct {
	Filename        string  `json:"filename"`
	FilenameDisplay string  `json:"filename_display"`
	Cover           *string `json:"cover"`
	UploadTime      float64 `json:"upload_time"`
}

// RoomState is the full snapshot sent to a client on join. LastProgressS is
// elapsed-corrected at send time, so a joiner starts from it directly.
type RoomState struct {
	ClientID       string  `json:"client_id"`
	CurrentFile    *string `json:"current_file"`
	CurrentDisplay *string `json:"current_file_display"`
	CurrentCover   *string `json:"current_cover"`
	IsPlaying      bool    `json:"is_playing"`
	LastProgressS  float64 `json:"last_progress_s"`
	LastUpdatedAt  float64 `json:"last_updated_at"`
	Queue          []Track `json:"queue"`
	CurrentIndex   int     `json:"current_index"`
	MemberCount    int     `json:"member_count"`
}

type NewFile struct {
	Filename        *string `json:"filename"`
	FilenameDisplay *string `json:"filename_display"`
	Cover           *string `json:"cover"`
}

type QueueUpdate struct {
	Queue        []Track `json:"queue"`
	CurrentIndex int     `json:"current_index"`
}

type MemberCountUpdate struct {
	Count int `json:"count"`
}

type Error struct {
	Message string `json:"message"`
}
