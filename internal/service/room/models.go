package room

import (
	"github.com/soundsync/server/internal/repository/room"
)

type Track struct {
	Filename        string
	FilenameDisplay string
	Cover           string
	UploadTime      float64
}

// Snapshot is the full room state handed to a joining client. LastProgressS
// is already elapsed-corrected when IsPlaying is true.
type Snapshot struct {
	CurrentFile    string
	CurrentDisplay string
	CurrentCover   string
	IsPlaying      bool
	LastProgressS  float64
	LastUpdatedAt  float64
	Queue          []Track
	CurrentIndex   int
	MemberCount    int
}

func trackFromRepo(t room.Track) Track {
	return Track{
		Filename:        t.Filename,
		FilenameDisplay: t.FilenameDisplay,
		Cover:           t.Cover,
		UploadTime:      t.UploadTime,
	}
}

func queueFromRepo(tracks []room.Track) []Track {
	queue := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		queue = append(queue, trackFromRepo(t))
	}

	return queue
}
