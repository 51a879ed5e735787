package playback

import "github.com/osa030/harmony/internal/domain/track"

// MediaSession is a platform now-playing surface mirrored from the adapter.
// Calls are best-effort and must not block.
type MediaSession interface {
	SetMetadata(t *track.Track)
	SetPlaybackState(state string)
	SetPosition(position, duration float64)
}

// Media session playback states.
const (
	SessionStateNone    = "none"
	SessionStatePlaying = "playing"
	SessionStatePaused  = "paused"
)

// MediaAction is an externally triggered transport action.
type MediaAction string

const (
	ActionPlay          MediaAction = "play"
	ActionPause         MediaAction = "pause"
	ActionPreviousTrack MediaAction = "previoustrack"
	ActionNextTrack     MediaAction = "nexttrack"
)
