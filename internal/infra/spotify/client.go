// Package spotify provides a client for the Spotify API, used to enrich
// search results with album and release year.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	Market       string

	// TokenURL and APIURL override the Spotify endpoints; used against test servers.
	TokenURL   string
	APIURL     string
	HTTPClient *http.Client
}

// Match is the Spotify metadata found for a track.
type Match struct {
	ID     string
	Title  string
	Artist string
	Album  string
	Year   int
}

// New creates a new Spotify client authenticated with client credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}

	var opts []spotify.ClientOption
	if cfg.APIURL != "" {
		opts = append(opts, spotify.WithBaseURL(cfg.APIURL))
	}
	client := spotify.New(creds.Client(ctx), opts...)

	market := cfg.Market
	if market == "" {
		market = "JP"
	}

	return &Client{
		client:     client,
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// Lookup finds the best Spotify match for a title and artist.
// found is false when Spotify has no such track.
func (c *Client) Lookup(ctx context.Context, title, artist string) (Match, bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Match{}, false, errors.New("title is required")
	}

	query := "track:" + title
	if a := strings.TrimSpace(artist); a != "" {
		query += " artist:" + a
	}

	var result *spotify.SearchResult
	err := c.retry(ctx, func() error {
		r, err := c.client.Search(ctx, query, spotify.SearchTypeTrack,
			spotify.Limit(1),
			spotify.Market(c.market),
		)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return Match{}, false, errors.Wrap(err, "failed to search")
	}

	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		zlog.Debug().Msgf("spotify: no match: title=%s artist=%s", title, artist)
		return Match{}, false, nil
	}
	return convertTrack(&result.Tracks.Tracks[0]), true, nil
}

// GetTrack retrieves track information by ID, URL, or URI.
func (c *Client) GetTrack(ctx context.Context, trackID string) (Match, error) {
	id := extractTrackID(trackID)
	if id == "" {
		return Match{}, errors.New("track id is required")
	}

	var result *spotify.FullTrack
	err := c.retry(ctx, func() error {
		t, err := c.client.GetTrack(ctx, spotify.ID(id), spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return Match{}, errors.Wrap(err, "failed to get track")
	}
	return convertTrack(result), nil
}

// IsTrackLink reports whether input is a Spotify track URL or URI.
func IsTrackLink(input string) bool {
	input = strings.TrimSpace(input)
	return strings.HasPrefix(input, "spotify:track:") ||
		(strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/"))
}

// GetTrackURL returns the Spotify URL for a track.
func GetTrackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
}

// convertTrack converts a Spotify FullTrack to a Match.
func convertTrack(t *spotify.FullTrack) Match {
	m := Match{
		ID:    string(t.ID),
		Title: t.Name,
		Album: t.Album.Name,
		Year:  releaseYear(t.Album.ReleaseDate),
	}
	if len(t.Artists) > 0 {
		m.Artist = t.Artists[0].Name
	}
	return m
}

// releaseYear extracts the year from "2006", "2006-03" or "2006-03-21".
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// retry retries an operation with linear backoff.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:track:TRACK_ID
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	// Handle URL format: https://open.spotify.com/track/TRACK_ID or https://open.spotify.com/intl-XX/track/TRACK_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		if len(parts) >= 2 {
			// Remove query parameters and trailing slashes
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	// Assume it's already a track ID
	return input
}
