package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/osa030/harmony/internal/domain/track"
)

// DuplicateTrackFilter drops search results that repeat an earlier result.
// Detects:
// - Exact track ID matches
// - Remasters, live takes and edits (normalized title + same artist)
// Excludes:
// - Cover songs (same title but different artist)
type DuplicateTrackFilter struct{}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter() *DuplicateTrackFilter {
	return &DuplicateTrackFilter{}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Drops repeated results, remasters included; covers by other artists are kept"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the track duplicates one already accepted.
func (f *DuplicateTrackFilter) Check(_ context.Context, requested track.Track, accepted []track.Track) Result {
	for _, kept := range accepted {
		if kept.ID == requested.ID || isRemaster(kept, requested) {
			return Reject("duplicate_track")
		}
	}
	return Accept()
}

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\((official\s+)?(music\s+)?video\)`), // "(Official Video)"
		regexp.MustCompile(`\s*\[(official\s+)?(music\s+)?video\]`), // "[Official Music Video]"
		regexp.MustCompile(`\s*\((official\s+)?audio\)`),            // "(Official Audio)"
		regexp.MustCompile(`\s*\(.*?version\)`),                     // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),                        // "(Radio Edit)"
		regexp.MustCompile(`\s*-?\s*live`),                          // "- Live"
		regexp.MustCompile(`\s*\(live\)`),                           // "(Live)"
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),                  // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`),              // "- Single Version"
	}
	spaces = regexp.MustCompile(`\s+`)
)

// isRemaster checks if two tracks are the same song (remaster/different version).
func isRemaster(track1, track2 track.Track) bool {
	if normalizeTrackName(track1.Title) != normalizeTrackName(track2.Title) {
		return false
	}
	// Same normalized name by a different artist is a cover
	return isSameArtist(track1, track2)
}

// normalizeTrackName removes remaster information and version details.
func normalizeTrackName(name string) string {
	normalized := strings.ToLower(name)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = spaces.ReplaceAllString(normalized, " ")
	return strings.TrimRight(normalized, " -")
}

// isSameArtist checks if two tracks have the same artist, ignoring case.
func isSameArtist(track1, track2 track.Track) bool {
	a1 := strings.TrimSpace(track1.Artist)
	a2 := strings.TrimSpace(track2.Artist)
	if a1 == "" || a2 == "" {
		return false
	}
	return strings.EqualFold(a1, a2)
}

func init() {
	Register("duplicate_track_filter", func() Filter {
		return &DuplicateTrackFilter{}
	})
}
