// Package disk stores uploaded audio assets and their extracted cover images
// as plain files under a single uploads directory.
package disk

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/soundsync/server/pkg/coverart"
)

var ErrExtensionNotAllowed = errors.New("file extension not allowed")

var allowedExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".ogg":  {},
	".flac": {},
	".m4a":  {},
}

var (
	pathSeparators = regexp.MustCompile(`[/\\]`)
	forbiddenChars = regexp.MustCompile(`[<>:"|?*]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

type repo struct {
	dir string
}

func NewRepo(dir string) (*repo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}

	return &repo{dir: dir}, nil
}

func (r *repo) Dir() string {
	return r.dir
}

// Remove deletes a stored file. A missing file is not an error.
func (r *repo) Remove(filename string) error {
	if err := os.Remove(filepath.Join(r.dir, SanitizeFilename(filename))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	return nil
}

// SanitizeFilename strips path separators and characters unsafe on common
// filesystems while preserving unicode, so non-latin track names survive the
// round trip. Returns "" if nothing safe remains.
func SanitizeFilename(filename string) string {
	filename = pathSeparators.ReplaceAllString(filename, "")
	filename = forbiddenChars.ReplaceAllString(filename, "")
	filename = whitespaceRuns.ReplaceAllString(strings.TrimSpace(filename), " ")

	return filename
}

// SaveTrack writes the uploaded audio to disk under a sanitized name and, if
// the file carries embedded cover art, writes it alongside as
// "<base>_cover.<ext>". Returns the stored filename and the cover filename
// ("" when the file has no cover).
func (r *repo) SaveTrack(filename string, src io.Reader) (string, string, error) {
	stored := SanitizeFilename(filename)
	if stored == "" {
		stored = fmt.Sprintf("audio_%s.mp3", uuid.NewString()[:8])
	}

	ext := strings.ToLower(filepath.Ext(stored))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", "", ErrExtensionNotAllowed
	}

	path := filepath.Join(r.dir, stored)
	dst, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to save track: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", "", fmt.Errorf("failed to save track: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", "", fmt.Errorf("failed to save track: %w", err)
	}

	cover, err := r.extractCover(path, stored)
	if err != nil {
		// a track without a readable cover is still a valid upload
		slog.Debug("disk.SaveTrack: no cover extracted", "filename", stored, "error", err)
		return stored, "", nil
	}

	return stored, cover, nil
}

func (r *repo) extractCover(path, stored string) (string, error) {
	data, ext, err := coverart.Extract(path)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(stored, filepath.Ext(stored))
	coverName := fmt.Sprintf("%s_cover.%s", base, ext)
	if err := os.WriteFile(filepath.Join(r.dir, coverName), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save cover: %w", err)
	}

	return coverName, nil
}
