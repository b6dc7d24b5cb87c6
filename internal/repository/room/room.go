package room

// Playback is the authoritative transport state of a room, stored as a Redis
// hash. If IsPlaying, the effective position at wall time t is
// LastProgressS + (t - LastUpdatedAt); otherwise it is exactly LastProgressS.
type Playback struct {
	CurrentFile    string  `redis:"current_file"`
	CurrentDisplay string  `redis:"current_file_display"`
	CurrentCover   string  `redis:"current_cover"`
	IsPlaying      bool    `redis:"is_playing"`
	LastProgressS  float64 `redis:"last_progress_s"`
	LastUpdatedAt  float64 `redis:"last_updated_at"`
	CurrentIndex   int     `redis:"current_index"`
}

// Track is one queue entry, stored JSON-encoded in the room's queue list.
type Track struct {
	Filename        string  `json:"filename"`
	FilenameDisplay string  `json:"filename_display"`
	Cover           string  `json:"cover,omitempty"`
	UploadTime      float64 `json:"upload_time"`
}
