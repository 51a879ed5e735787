// Package ws bridges a remote browser page hosting the embedded video player
// to the playback adapter over a websocket.
package ws

import (
	"github.com/osa030/harmony/internal/app/notification"
	"github.com/osa030/harmony/internal/app/playback"
	"github.com/osa030/harmony/internal/domain/track"
)

// Messages sent to the page.
const (
	TypeCommand       = "command"
	TypeNotice        = "notice"
	TypeProgress      = "progress"
	TypeMetadata      = "metadata"
	TypePlaybackState = "playbackState"
	TypePosition      = "position"
)

// Messages received from the page.
const (
	TypeReady  = "ready"
	TypeState  = "state"
	TypeError  = "error"
	TypeTime   = "time"
	TypeAction = "action"
)

// Player commands.
const (
	CommandLoad   = "load"
	CommandPlay   = "play"
	CommandPause  = "pause"
	CommandSeek   = "seek"
	CommandVolume = "volume"
)

// Outbound is a message to the page.
type Outbound struct {
	Type     string               `json:"type"`
	Command  string               `json:"command,omitempty"`
	SourceID string               `json:"sourceId,omitempty"`
	Seconds  *float64             `json:"seconds,omitempty"`
	Volume   *int                 `json:"volume,omitempty"`
	Notice   *notification.Notice `json:"notice,omitempty"`
	Progress *playback.Progress   `json:"progress,omitempty"`
	Track    *track.Track         `json:"track,omitempty"`
	State    string               `json:"state,omitempty"`
	Position *float64             `json:"position,omitempty"`
	Duration *float64             `json:"duration,omitempty"`
}

// Inbound is a message from the page. State and Code use the embedded
// player's numeric codes.
type Inbound struct {
	Type        string  `json:"type"`
	SourceID    string  `json:"sourceId"`
	State       int     `json:"state"`
	Code        int     `json:"code"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Action      string  `json:"action"`
}
