// Package coverart extracts embedded cover images from audio files
// (ID3/APIC, FLAC pictures, MP4 covr atoms).
package coverart

import (
	"errors"
	"os"
	"strings"

	"github.com/dhowden/tag"
)

var ErrNoCover = errors.New("no cover art found")

// Extract returns the raw image bytes and a file extension ("png" or "jpg")
// for the first embedded picture in the audio file at path.
func Extract(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, "", err
	}

	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, "", ErrNoCover
	}

	ext := "jpg"
	if strings.Contains(pic.MIMEType, "png") || pic.Ext == "png" {
		ext = "png"
	}

	return pic.Data, ext, nil
}
