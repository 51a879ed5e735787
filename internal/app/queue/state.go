// Package queue provides the queue and history engine that owns what is playing,
// what is queued and what has been played.
package queue

// State represents the engine state derived from the current track and playback intent.
type State int

const (
	StateIdle    State = iota // No current track
	StatePaused               // Track set, intent paused
	StatePlaying              // Track set, intent playing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}
