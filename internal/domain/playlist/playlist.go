// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/osa030/harmony/internal/domain/track"
)

// LikedSongsID is the reserved identifier of the liked songs playlist.
const LikedSongsID = "liked-songs"

// Playlist represents a named, ordered collection of tracks owned by a user.
type Playlist struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Tracks      []track.Track `json:"songs"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// NewLikedSongs returns an empty liked songs playlist.
func NewLikedSongs() Playlist {
	return Playlist{
		ID:          LikedSongsID,
		Name:        "Liked Songs",
		Description: "Your favorite tracks",
		Tracks:      []track.Track{},
		CreatedAt:   time.Now(),
	}
}

// IsLikedSongs reports whether this is the reserved liked songs playlist.
func (p *Playlist) IsLikedSongs() bool {
	return p.ID == LikedSongsID
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// Contains reports whether the playlist holds a track with the given ID.
func (p *Playlist) Contains(trackID string) bool {
	return track.IndexOf(p.Tracks, trackID) >= 0
}

// TotalDuration returns the total duration of all tracks in seconds.
func (p *Playlist) TotalDuration() int64 {
	var total int64
	for _, t := range p.Tracks {
		total += int64(t.Duration)
	}
	return total
}
