package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerProgress(t *testing.T) {
	t.Parallel()

	// heartbeat stamped 0.3s of server time ago
	assert.InDelta(t, 100.3, ServerProgress(100.0, 1000.0, 1000.3), 1e-9)
}

func TestCorrectDrift(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		localPosition  float64
		serverProgress float64
		want           Correction
	}{
		{
			name:           "large drift ahead seeks and resets rate",
			localPosition:  100.9,
			serverProgress: 100.0,
			want:           Correction{HardSeek: true, Position: 100.0, Rate: 1.0},
		},
		{
			name:           "large drift behind seeks and resets rate",
			localPosition:  99.1,
			serverProgress: 100.0,
			want:           Correction{HardSeek: true, Position: 100.0, Rate: 1.0},
		},
		{
			name:           "small drift ahead slows down without seeking",
			localPosition:  100.15,
			serverProgress: 100.0,
			want:           Correction{Rate: 0.95},
		},
		{
			name:           "small drift behind speeds up without seeking",
			localPosition:  99.85,
			serverProgress: 100.0,
			want:           Correction{Rate: 1.05},
		},
		{
			name:           "negligible drift restores rate 1.0",
			localPosition:  100.02,
			serverProgress: 100.0,
			want:           Correction{Rate: 1.0},
		},
		{
			name:           "in sync keeps rate 1.0",
			localPosition:  100.0,
			serverProgress: 100.0,
			want:           Correction{Rate: 1.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CorrectDrift(tt.localPosition, tt.serverProgress)

			assert.Equal(t, tt.want.HardSeek, got.HardSeek)
			assert.InDelta(t, tt.want.Rate, got.Rate, 1e-9)
			if tt.want.HardSeek {
				assert.InDelta(t, tt.want.Position, got.Position, 1e-9)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.75, clamp(0.5, 0.75, 1.25))
	assert.Equal(t, 1.25, clamp(2.0, 0.75, 1.25))
	assert.Equal(t, 1.05, clamp(1.05, 0.75, 1.25))
}
