// Package playback bridges queue engine intent to an asynchronously initializing media element
// and translates the element's events back into queue engine transitions.
package playback

import "context"

// ElementState is the state reported by the media element.
// Values follow the embedded player's numeric codes.
type ElementState int

const (
	ElementUnstarted ElementState = -1
	ElementEnded     ElementState = 0
	ElementPlaying   ElementState = 1
	ElementPaused    ElementState = 2
	ElementBuffering ElementState = 3
	ElementCued      ElementState = 5
)

// String returns the string representation of the element state.
func (s ElementState) String() string {
	switch s {
	case ElementUnstarted:
		return "unstarted"
	case ElementEnded:
		return "ended"
	case ElementPlaying:
		return "playing"
	case ElementPaused:
		return "paused"
	case ElementBuffering:
		return "buffering"
	case ElementCued:
		return "cued"
	default:
		return "unknown"
	}
}

// ParseElementState converts a state name to an ElementState.
func ParseElementState(s string) (ElementState, bool) {
	for _, st := range []ElementState{ElementUnstarted, ElementEnded, ElementPlaying, ElementPaused, ElementBuffering, ElementCued} {
		if st.String() == s {
			return st, true
		}
	}
	return ElementUnstarted, false
}

// ElementEventType represents a media element event type.
type ElementEventType int

const (
	ElementReady        ElementEventType = iota // Element initialized
	ElementStateChanged                         // Element state changed
	ElementError                                // Element reported an error code
)

// String returns the string representation of the element event type.
func (e ElementEventType) String() string {
	switch e {
	case ElementReady:
		return "ready"
	case ElementStateChanged:
		return "state_changed"
	case ElementError:
		return "error"
	default:
		return "unknown"
	}
}

// ElementEvent is an event emitted by the media element.
// SourceID is the source the element had loaded when it emitted the event.
type ElementEvent struct {
	Type     ElementEventType
	State    ElementState
	Code     int
	SourceID string
}

// Element is the external media playback element.
// Load and Seek complete asynchronously; their outcome arrives as events.
type Element interface {
	Load(ctx context.Context, sourceID string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error
	SetVolume(ctx context.Context, volume int) error
	CurrentTime() float64
	Duration() float64
	State() ElementState
	Events() <-chan ElementEvent
}

// Error codes reported by the embedded player.
const (
	ErrorCodeInvalidParam  = 2
	ErrorCodeHTML5         = 5
	ErrorCodeNotFound      = 100 // removed or private
	ErrorCodeNotEmbeddable = 101
	ErrorCodeRestricted    = 150 // same as 101, returned for some embeds
)

// IsPermanentError reports whether code means the media will never play.
func IsPermanentError(code int) bool {
	switch code {
	case ErrorCodeNotFound, ErrorCodeNotEmbeddable, ErrorCodeRestricted:
		return true
	default:
		return false
	}
}
