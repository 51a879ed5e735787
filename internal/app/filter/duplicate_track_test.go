package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/harmony/internal/domain/track"
)

func TestDuplicateTrackFilter_ExactIDMatch(t *testing.T) {
	filter := NewDuplicateTrackFilter()
	accepted := []track.Track{{ID: "track123", Title: "Bohemian Rhapsody", Artist: "Queen"}}

	result := filter.Check(context.Background(), track.Track{
		ID:     "track123",
		Title:  "Something Else Entirely",
		Artist: "Nobody",
	}, accepted)

	assert.False(t, result.Accepted)
	assert.Equal(t, "duplicate_track", result.Code)
}

func TestDuplicateTrackFilter_RemasterDetection(t *testing.T) {
	tests := []struct {
		name         string
		kept         track.Track
		requested    track.Track
		shouldReject bool
	}{
		{
			name:         "Standard remaster pattern",
			kept:         track.Track{ID: "original123", Title: "Bohemian Rhapsody", Artist: "Queen"},
			requested:    track.Track{ID: "remaster456", Title: "Bohemian Rhapsody - 2011 Remaster", Artist: "Queen"},
			shouldReject: true,
		},
		{
			name:         "Remastered in parentheses",
			kept:         track.Track{ID: "original123", Title: "Yesterday", Artist: "The Beatles"},
			requested:    track.Track{ID: "remaster456", Title: "Yesterday (Remastered 2023)", Artist: "The Beatles"},
			shouldReject: true,
		},
		{
			name:         "Official video upload",
			kept:         track.Track{ID: "audio1", Title: "Take On Me", Artist: "a-ha"},
			requested:    track.Track{ID: "video1", Title: "Take On Me (Official Video)", Artist: "A-HA"},
			shouldReject: true,
		},
		{
			name:         "Cover song - different artist",
			kept:         track.Track{ID: "original123", Title: "Yesterday", Artist: "The Beatles"},
			requested:    track.Track{ID: "cover789", Title: "Yesterday", Artist: "Paul McCartney"},
			shouldReject: false,
		},
		{
			name:         "Different songs - similar names",
			kept:         track.Track{ID: "track1", Title: "Love", Artist: "John Lennon"},
			requested:    track.Track{ID: "track2", Title: "Love Song", Artist: "John Lennon"},
			shouldReject: false,
		},
		{
			name:         "Unknown artist is never a remaster",
			kept:         track.Track{ID: "track1", Title: "Intro"},
			requested:    track.Track{ID: "track2", Title: "Intro"},
			shouldReject: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := NewDuplicateTrackFilter()
			result := filter.Check(context.Background(), tt.requested, []track.Track{tt.kept})
			assert.Equal(t, !tt.shouldReject, result.Accepted)
		})
	}
}

func TestDuplicateTrackFilter_NothingAccepted(t *testing.T) {
	filter := NewDuplicateTrackFilter()
	result := filter.Check(context.Background(), track.Track{ID: "a", Title: "A"}, nil)
	assert.True(t, result.Accepted)
}

func TestNormalizeTrackName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Bohemian Rhapsody", "bohemian rhapsody"},
		{"Bohemian Rhapsody - 2011 Remaster", "bohemian rhapsody"},
		{"Yesterday (Remastered 2023)", "yesterday"},
		{"Hotel California [Remastered]", "hotel california"},
		{"Stairway to Heaven (Radio Edit)", "stairway to heaven"},
		{"Imagine - Live", "imagine"},
		{"Let It Be (Single Version)", "let it be"},
		{"Hey Jude - Remastered Version", "hey jude"},
		{"Africa (Official Audio)", "africa"},
		{"Come Together (2019 Mix)", "come together (2019 mix)"},
		{"   Extra   Spaces   ", "extra spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeTrackName(tt.input))
		})
	}
}

func TestIsSameArtist(t *testing.T) {
	tests := []struct {
		name     string
		a1, a2   string
		expected bool
	}{
		{name: "Same artist", a1: "Queen", a2: "Queen", expected: true},
		{name: "Same artist - case insensitive", a1: "Queen", a2: "queen", expected: true},
		{name: "Surrounding spaces", a1: " Queen ", a2: "Queen", expected: true},
		{name: "Different artists", a1: "The Beatles", a2: "Paul McCartney", expected: false},
		{name: "Empty artist", a1: "", a2: "Queen", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isSameArtist(track.Track{Artist: tt.a1}, track.Track{Artist: tt.a2})
			assert.Equal(t, tt.expected, result)
		})
	}
}
