// Package youtube provides a music search client for the YouTube Data API.
package youtube

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/osa030/harmony/internal/domain/track"
)

const (
	musicCategoryID   = "10"
	defaultMaxResults = 50
	unknownArtist     = "Unknown Artist"
	untitled          = "Untitled"
)

var (
	// ErrQuotaExceeded is returned when the daily API quota is used up.
	ErrQuotaExceeded = errors.New("youtube API quota has been exceeded, search is temporarily unavailable")
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("youtube API key is required")
)

// Config represents YouTube client configuration.
type Config struct {
	APIKey            string
	MaxResults        int64
	RequestsPerSecond float64
	Burst             int

	// Endpoint and HTTPClient override the API location; used against test servers.
	Endpoint   string
	HTTPClient *http.Client
}

// Client searches music videos.
type Client struct {
	service    *youtube.Service
	limiter    *rate.Limiter
	maxResults int64
}

// New creates a new YouTube client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var opts []option.ClientOption
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, ErrMissingAPIKey
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create youtube service")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 || maxResults > defaultMaxResults {
		maxResults = defaultMaxResults
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		service:    service,
		limiter:    rate.NewLimiter(limit, burst),
		maxResults: maxResults,
	}, nil
}

// Search finds music videos for query. genre is recorded on every result and
// order is one of "relevance", "viewCount" or "date" (empty uses the API default).
func (c *Client) Search(ctx context.Context, query, genre, order string) ([]track.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}
	call := c.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		VideoCategoryId(musicCategoryID).
		MaxResults(c.maxResults)
	if order != "" {
		call = call.Order(order)
	}
	searchResp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err, "search failed")
	}

	ids := make([]string, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		zlog.Debug().Msgf("youtube: no results: query=%s", query)
		return []track.Track{}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}
	videosResp, err := c.service.Videos.List([]string{"snippet", "contentDetails"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError(err, "video details failed")
	}

	tracks := make([]track.Track, 0, len(videosResp.Items))
	for _, v := range videosResp.Items {
		tracks = append(tracks, convertVideo(v, genre))
	}
	zlog.Info().Msgf("youtube: search: query=%s results=%d", query, len(tracks))
	return tracks, nil
}

func wrapAPIError(err error, msg string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if strings.Contains(strings.ToLower(apiErr.Message), "quota") {
			return ErrQuotaExceeded
		}
		for _, item := range apiErr.Errors {
			if strings.Contains(strings.ToLower(item.Reason), "quota") {
				return ErrQuotaExceeded
			}
		}
	}
	return errors.Wrap(err, msg)
}

// convertVideo converts a video resource to a domain Track.
func convertVideo(v *youtube.Video, genre string) track.Track {
	t := track.Track{ID: v.Id, Genre: genre, Year: time.Now().Year()}

	if v.Snippet != nil {
		t.Artist, t.Title = splitTitle(v.Snippet.Title, v.Snippet.ChannelTitle)
		if published, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			t.Year = published.Year()
		}
		if v.Snippet.Thumbnails != nil && v.Snippet.Thumbnails.High != nil {
			t.ThumbnailURL = v.Snippet.Thumbnails.High.Url
		}
	} else {
		t.Artist, t.Title = unknownArtist, untitled
	}
	if v.ContentDetails != nil {
		t.Duration = ParseDuration(v.ContentDetails.Duration)
	}

	t.Keywords = track.BuildKeywords(t.Title, t.Artist, t.Genre)
	return t
}

var bracketed = regexp.MustCompile(`\((.*?)\)|\[(.*?)\]`)

// splitTitle derives artist and title from a video title.
// "Artist - Title" is split; otherwise a short bracketed part is taken as the
// artist, and the channel name is the last resort.
func splitTitle(videoTitle, channel string) (artist, title string) {
	title = strings.TrimSpace(videoTitle)
	if title == "" {
		title = untitled
	}
	artist = strings.TrimSpace(channel)
	if artist == "" {
		artist = unknownArtist
	}

	if parts := strings.Split(title, " - "); len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}

	if m := bracketed.FindStringSubmatch(title); m != nil {
		candidate := m[1]
		if candidate == "" {
			candidate = m[2]
		}
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && len(candidate) < 30 {
			return candidate, strings.TrimSpace(strings.Replace(title, m[0], "", 1))
		}
	}
	return artist, title
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration converts an ISO 8601 duration such as "PT4M13S" to seconds.
// Unparseable input yields 0.
func ParseDuration(s string) int {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}
