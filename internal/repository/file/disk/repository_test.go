package disk

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{
			name:     "plain name untouched",
			filename: "song.mp3",
			want:     "song.mp3",
		},
		{
			name:     "path separators stripped",
			filename: "../../etc/passwd.mp3",
			want:     "....etcpasswd.mp3",
		},
		{
			name:     "windows separators stripped",
			filename: `..\..\song.mp3`,
			want:     "....song.mp3",
		},
		{
			name:     "forbidden characters stripped",
			filename: `so<n>g:"a"|b?c*.mp3`,
			want:     "songabc.mp3",
		},
		{
			name:     "whitespace runs collapsed",
			filename: "  my   favorite\t song.mp3  ",
			want:     "my favorite song.mp3",
		},
		{
			name:     "unicode preserved",
			filename: "Пример трека.mp3",
			want:     "Пример трека.mp3",
		},
		{
			name:     "nothing safe left",
			filename: `/\<>`,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, SanitizeFilename(tt.filename))
		})
	}
}

func TestSaveTrack(t *testing.T) {
	t.Parallel()

	repo, err := NewRepo(t.TempDir())
	require.NoError(t, err)

	stored, cover, err := repo.SaveTrack("song.mp3", strings.NewReader("not really audio"))
	require.NoError(t, err)
	assert.Equal(t, "song.mp3", stored)
	// garbage bytes carry no tags, upload still succeeds without a cover
	assert.Empty(t, cover)

	data, err := os.ReadFile(filepath.Join(repo.Dir(), stored))
	require.NoError(t, err)
	assert.Equal(t, "not really audio", string(data))
}

func TestSaveTrack_ExtensionNotAllowed(t *testing.T) {
	t.Parallel()

	repo, err := NewRepo(t.TempDir())
	require.NoError(t, err)

	_, _, err = repo.SaveTrack("malware.exe", strings.NewReader("nope"))
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)

	_, _, err = repo.SaveTrack("song.txt", strings.NewReader("nope"))
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	repo, err := NewRepo(t.TempDir())
	require.NoError(t, err)

	stored, _, err := repo.SaveTrack("song.mp3", strings.NewReader("audio"))
	require.NoError(t, err)

	require.NoError(t, repo.Remove(stored))
	_, err = os.Stat(filepath.Join(repo.Dir(), stored))
	assert.True(t, os.IsNotExist(err))

	// removing a file that is already gone is fine
	assert.NoError(t, repo.Remove("never-stored.mp3"))
}

func TestSaveTrack_EmptyNameGetsGenerated(t *testing.T) {
	t.Parallel()

	repo, err := NewRepo(t.TempDir())
	require.NoError(t, err)

	stored, _, err := repo.SaveTrack(`/\`, strings.NewReader("audio"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored, "audio_"))
	assert.True(t, strings.HasSuffix(stored, ".mp3"))
}
