package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_Offset(t *testing.T) {
	t.Parallel()

	clock := NewClock()

	assert.Zero(t, clock.Offset())
	assert.False(t, clock.Synced())

	// ping leaves at t0=100.0, server stamps 1000.5, reply lands at t1=100.2
	clock.BeginProbe(100.0)
	clock.CompleteProbe(1000.5, 100.2)

	// offset = t_server + rtt/2 - t1 = 1000.5 + 0.1 - 100.2
	assert.InDelta(t, 900.4, clock.Offset(), 1e-9)
	assert.True(t, clock.Synced())
}

func TestClock_ProbeReplacesPreviousEstimate(t *testing.T) {
	t.Parallel()

	clock := NewClock()

	clock.BeginProbe(100.0)
	clock.CompleteProbe(1000.5, 100.2)
	first := clock.Offset()

	clock.BeginProbe(200.0)
	clock.CompleteProbe(1101.0, 200.4)

	// offset = 1101.0 + 0.2 - 200.4
	assert.InDelta(t, 900.8, clock.Offset(), 1e-9)
	assert.NotEqual(t, first, clock.Offset())
}

func TestClock_PongWithoutProbeIsDropped(t *testing.T) {
	t.Parallel()

	clock := NewClock()

	clock.CompleteProbe(1000.0, 100.0)

	assert.Zero(t, clock.Offset())
	assert.False(t, clock.Synced())
}

func TestClock_Conversions(t *testing.T) {
	t.Parallel()

	clock := NewClock()
	clock.BeginProbe(0)
	clock.CompleteProbe(900.0, 0)

	assert.InDelta(t, 1000.0, clock.ServerNow(100.0), 1e-9)
	assert.InDelta(t, 100.0, clock.LocalDeadline(1000.0), 1e-9)
}
