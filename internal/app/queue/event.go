package queue

import "github.com/osa030/harmony/internal/domain/track"

// EventType represents an engine event type.
type EventType int

const (
	EventTrackChanged   EventType = iota // Current track replaced, player must load it
	EventTrackRestarted                  // Same track re-asserted, player should restart it
	EventIntentChanged                   // Playback intent flipped
	EventQueueChanged                    // Queue contents or order changed
	EventQueueCleared                    // Queue cleared down to the current track
	EventHistoryChanged                  // History changed without a track change
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventTrackRestarted:
		return "track_restarted"
	case EventIntentChanged:
		return "intent_changed"
	case EventQueueChanged:
		return "queue_changed"
	case EventQueueCleared:
		return "queue_cleared"
	case EventHistoryChanged:
		return "history_changed"
	default:
		return "unknown"
	}
}

// Event represents an engine event.
// Track is the current track at emission time (nil when idle) and Generation
// is the track-change counter at emission time.
type Event struct {
	Type       EventType
	Track      *track.Track
	Playing    bool
	Generation uint64
}
