package client

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Drift correction is two-tiered: large drift gets a hard seek to the
// authoritative position, small but audible drift gets an inaudible playback
// rate nudge, and anything below the soft threshold restores rate 1.0.
const (
	hardDriftThreshold = 0.5
	softDriftThreshold = 0.08
	rateNudge          = 0.05

	minPlaybackRate = 0.75
	maxPlaybackRate = 1.25
)

// Correction is the action the corrector decided on for one heartbeat.
type Correction struct {
	// HardSeek tells the player to snap to Position. Rate always applies.
	HardSeek bool
	Position float64
	Rate     float64
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}

// ServerProgress projects the server's reported position forward by the
// server-clock time elapsed since the report was stamped.
func ServerProgress(audioTime, serverTime, serverNow float64) float64 {
	return audioTime + (serverNow - serverTime)
}

// CorrectDrift picks the correction for the gap between the local position and
// the projected server position. Positive drift means the local player is
// ahead, so the nudge slows it down.
func CorrectDrift(localPosition, serverProgress float64) Correction {
	drift := localPosition - serverProgress

	switch {
	case math.Abs(drift) > hardDriftThreshold:
		return Correction{HardSeek: true, Position: serverProgress, Rate: 1.0}
	case math.Abs(drift) > softDriftThreshold:
		rate := 1.0 + rateNudge
		if drift > 0 {
			rate = 1.0 - rateNudge
		}
		return Correction{Rate: clamp(rate, minPlaybackRate, maxPlaybackRate)}
	default:
		return Correction{Rate: 1.0}
	}
}
