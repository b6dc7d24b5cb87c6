package client

// Player is the local audio element the session drives. Implementations wrap
// whatever actually renders audio; the session only needs transport control
// and the current position.
type Player interface {
	// Load switches the player to a new audio asset, paused at zero.
	Load(filename string)
	Play()
	Pause()
	Playing() bool
	// Position is the current audio position in seconds.
	Position() float64
	SetPosition(seconds float64)
	// SetRate adjusts playback speed, 1.0 being realtime.
	SetRate(rate float64)
	// Seeking reports whether a seek is still settling, during which drift
	// measurements are meaningless.
	Seeking() bool
}
