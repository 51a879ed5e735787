// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"
)

// Track represents a playable catalog entry.
// ID doubles as the media source identifier handed to the player element.
type Track struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Artist       string   `json:"artist"`
	Album        string   `json:"album"`
	Year         int      `json:"year"`
	Genre        string   `json:"genre"`
	Duration     int      `json:"duration"` // seconds
	ThumbnailURL string   `json:"thumbnailUrl"`
	Keywords     []string `json:"search_keywords,omitempty"`
}

// Equal reports whether two tracks share the same identity.
// Metadata may differ; only the ID matters.
func (t Track) Equal(other Track) bool {
	return t.ID == other.ID
}

// Length returns the duration as a time.Duration.
func (t Track) Length() time.Duration {
	return time.Duration(t.Duration) * time.Second
}

// IndexOf returns the position of the track with the given ID, or -1.
func IndexOf(tracks []Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Without returns a copy of tracks with every entry matching id removed.
func Without(tracks []Track, id string) []Track {
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// BuildKeywords builds the normalized search keywords for a track.
// Words longer than two characters are expanded to every prefix of at least two characters.
func BuildKeywords(title, artist, genre string) []string {
	seen := make(map[string]bool)
	keywords := make([]string, 0)
	add := func(k string) {
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		keywords = append(keywords, k)
	}

	for _, field := range []string{title, artist, genre} {
		lower := strings.ToLower(strings.TrimSpace(field))
		for _, word := range strings.Fields(lower) {
			runes := []rune(word)
			if len(runes) > 2 {
				for i := 2; i <= len(runes); i++ {
					add(string(runes[:i]))
				}
			} else {
				add(word)
			}
		}
		add(lower)
	}
	return keywords
}
