// Package lastfm provides a client for the Last.fm API, used to tag
// search results with a genre.
package lastfm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// track tags keyed by lowercased artist and title
	tagCache map[string][]Tag
	cacheMu  sync.RWMutex
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Tag represents a Last.fm tag.
type Tag struct {
	Name  string
	Count int // Tag count/frequency
}

type topTagsResponse struct {
	TopTags struct {
		Tag []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"tag"`
	} `json:"toptags"`
}

type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// Tags that say nothing about the genre of a track.
var noiseTags = []string{"seen live", "favorites", "favourite", "favorite", "love", "awesome", "beautiful", "my favorite"}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		tagCache:   make(map[string][]Tag),
	}, nil
}

// GetTopTags retrieves top tags for a track from Last.fm.
// Reference: https://www.last.fm/api/show/track.getTopTags
func (c *Client) GetTopTags(ctx context.Context, trackName, artistName string, limit int) ([]Tag, error) {
	if trackName == "" || artistName == "" {
		return nil, errors.New("track name and artist name are required")
	}

	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	cacheKey := strings.ToLower(artistName) + "\x00" + strings.ToLower(trackName)
	c.cacheMu.RLock()
	if tags, ok := c.tagCache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("lastfm: using cached tags: artist=%s track=%s", artistName, trackName)
		return lo.Slice(tags, 0, limit), nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("method", "track.getTopTags")
	params.Set("artist", artistName)
	params.Set("track", trackName)
	params.Set("autocorrect", "1")

	var response topTagsResponse
	if err := c.call(ctx, params, &response); err != nil {
		return nil, err
	}

	tags := make([]Tag, 0, len(response.TopTags.Tag))
	for _, t := range response.TopTags.Tag {
		tags = append(tags, Tag{Name: t.Name, Count: t.Count})
	}

	c.cacheMu.Lock()
	c.tagCache[cacheKey] = tags
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("lastfm: cached tags: artist=%s track=%s count=%d", artistName, trackName, len(tags))

	return lo.Slice(tags, 0, limit), nil
}

// Genre returns the most used genre-like tag of a track, title-cased.
// found is false when Last.fm has no usable tag.
func (c *Client) Genre(ctx context.Context, trackName, artistName string) (string, bool, error) {
	tags, err := c.GetTopTags(ctx, trackName, artistName, 10)
	if err != nil {
		return "", false, err
	}
	tag, ok := lo.Find(tags, func(t Tag) bool {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		return name != "" && !lo.Contains(noiseTags, name) && !strings.EqualFold(name, artistName)
	})
	if !ok {
		return "", false, nil
	}
	return titleCase(tag.Name), true, nil
}

func (c *Client) call(ctx context.Context, params url.Values, dst any) error {
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		return errors.Errorf("last.fm API error %d: %s", apiErr.Error, apiErr.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("last.fm API status %s", strconv.Itoa(resp.StatusCode))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
