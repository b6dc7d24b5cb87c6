package room

type CreateRoomParams struct {
	RoomID   string
	Playback Playback
}

type UpdatePlaybackStateParams struct {
	RoomID        string
	IsPlaying     bool
	LastProgressS float64
	LastUpdatedAt float64
}

type UpdateCurrentTrackParams struct {
	RoomID         string
	CurrentFile    string
	CurrentDisplay string
	CurrentCover   string
	CurrentIndex   int
	IsPlaying      bool
	LastProgressS  float64
	LastUpdatedAt  float64
}

type AppendTrackParams struct {
	RoomID string
	Track  Track
}

type RemoveTrackParams struct {
	RoomID string
	Index  int
}
