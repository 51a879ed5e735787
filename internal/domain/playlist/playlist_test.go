package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/harmony/internal/domain/track"
)

func TestPlaylist_TrackIDs(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []track.Track
		expected []string
	}{
		{
			name:     "empty playlist",
			tracks:   []track.Track{},
			expected: []string{},
		},
		{
			name:     "single track",
			tracks:   []track.Track{{ID: "track-1"}},
			expected: []string{"track-1"},
		},
		{
			name:     "multiple tracks keep order",
			tracks:   []track.Track{{ID: "track-3"}, {ID: "track-1"}, {ID: "track-2"}},
			expected: []string{"track-3", "track-1", "track-2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{ID: "playlist-1", Tracks: tt.tracks}
			assert.Equal(t, tt.expected, p.TrackIDs())
		})
	}
}

func TestPlaylist_Contains(t *testing.T) {
	p := &Playlist{Tracks: []track.Track{{ID: "a"}, {ID: "b"}}}

	assert.True(t, p.Contains("a"))
	assert.True(t, p.Contains("b"))
	assert.False(t, p.Contains("c"))
	assert.False(t, (&Playlist{}).Contains("a"))
}

func TestPlaylist_TotalDuration(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []track.Track
		expected int64
	}{
		{
			name:     "empty playlist",
			tracks:   []track.Track{},
			expected: 0,
		},
		{
			name:     "single track",
			tracks:   []track.Track{{ID: "track-1", Duration: 180}},
			expected: 180,
		},
		{
			name: "multiple tracks",
			tracks: []track.Track{
				{ID: "track-1", Duration: 120},
				{ID: "track-2", Duration: 210},
				{ID: "track-3", Duration: 240},
			},
			expected: 570,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{ID: "playlist-1", Name: "Test Playlist", Tracks: tt.tracks}
			assert.Equal(t, tt.expected, p.TotalDuration())
		})
	}
}

func TestNewLikedSongs(t *testing.T) {
	p := NewLikedSongs()

	assert.Equal(t, LikedSongsID, p.ID)
	assert.True(t, p.IsLikedSongs())
	assert.NotNil(t, p.Tracks)
	assert.Empty(t, p.Tracks)

	other := Playlist{ID: "mix"}
	assert.False(t, other.IsLikedSongs())
}
