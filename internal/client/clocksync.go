// Package client implements the client-resident half of the synchronization
// protocol: clock offset estimation, drift correction against the server's
// periodic heartbeat, and the session that applies remote transport commands
// to a local player without echoing them back.
package client

import "sync"

// Clock estimates the offset between the local wall clock and the server's.
// All times are float64 unix seconds. A probe records the local send time,
// the server answers with its wall time, and the reply's arrival time closes
// the round trip:
//
//	offset = (t_server + rtt/2) - t1
//
// Each completed probe replaces the previous estimate outright. A lost reply
// leaves the estimate stale until the next cycle.
type Clock struct {
	mu            sync.Mutex
	probeSentAt   float64
	probeInFlight bool
	offset        float64
	synced        bool
}

func NewClock() *Clock {
	return &Clock{}
}

// BeginProbe records the local send time of a ping. A probe already in flight
// is abandoned.
func (c *Clock) BeginProbe(localNow float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.probeSentAt = localNow
	c.probeInFlight = true
}

// CompleteProbe folds the server's reply into a fresh offset estimate. A pong
// with no probe in flight is dropped.
func (c *Clock) CompleteProbe(serverTime, localNow float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.probeInFlight {
		return
	}
	c.probeInFlight = false

	rtt := localNow - c.probeSentAt
	c.offset = (serverTime + rtt/2) - localNow
	c.synced = true
}

// Offset is the current estimate of server_time - local_time, zero until the
// first probe completes.
func (c *Clock) Offset() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.offset
}

func (c *Clock) Synced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.synced
}

// ServerNow translates a local timestamp into estimated server time.
func (c *Clock) ServerNow(localNow float64) float64 {
	return localNow + c.Offset()
}

// LocalDeadline translates a server-stamped timestamp into the local clock,
// for scheduling a coordinated start.
func (c *Clock) LocalDeadline(serverTime float64) float64 {
	return serverTime - c.Offset()
}
