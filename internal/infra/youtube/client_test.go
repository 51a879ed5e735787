package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(context.Background(), Config{
		Endpoint:   server.URL + "/",
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	return client
}

func TestSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "lofi beats", q.Get("q"))
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "10", q.Get("videoCategoryId"))
		assert.Equal(t, "50", q.Get("maxResults"))
		assert.Equal(t, "viewCount", q.Get("order"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": [
			{"id": {"kind": "youtube#video", "videoId": "v1"}},
			{"id": {"kind": "youtube#channel"}},
			{"id": {"kind": "youtube#video", "videoId": "v2"}}
		]}`)
	})
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "v1,v2", r.URL.Query().Get("id"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": [
			{
				"id": "v1",
				"snippet": {
					"title": "Nujabes - Aruarian Dance",
					"channelTitle": "Hydeout",
					"publishedAt": "2011-03-02T10:00:00Z",
					"thumbnails": {"high": {"url": "https://i.ytimg.com/vi/v1/hq.jpg"}}
				},
				"contentDetails": {"duration": "PT4M13S"}
			},
			{
				"id": "v2",
				"snippet": {"title": "Rainy Night", "channelTitle": "Lofi Girl", "publishedAt": "2020-01-01T00:00:00Z"},
				"contentDetails": {"duration": "PT1H2M"}
			}
		]}`)
	})

	client := newTestClient(t, mux)
	tracks, err := client.Search(context.Background(), " lofi beats ", "Chill", "viewCount")
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, "v1", tracks[0].ID)
	assert.Equal(t, "Nujabes", tracks[0].Artist)
	assert.Equal(t, "Aruarian Dance", tracks[0].Title)
	assert.Equal(t, 253, tracks[0].Duration)
	assert.Equal(t, 2011, tracks[0].Year)
	assert.Equal(t, "Chill", tracks[0].Genre)
	assert.Equal(t, "https://i.ytimg.com/vi/v1/hq.jpg", tracks[0].ThumbnailURL)
	assert.Contains(t, tracks[0].Keywords, "aru")
	assert.Contains(t, tracks[0].Keywords, "chill")

	assert.Equal(t, "Lofi Girl", tracks[1].Artist)
	assert.Equal(t, "Rainy Night", tracks[1].Title)
	assert.Equal(t, 3720, tracks[1].Duration)
}

func TestSearch_NoResults(t *testing.T) {
	videosCalled := false
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": []}`)
	})
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		videosCalled = true
	})

	client := newTestClient(t, mux)
	tracks, err := client.Search(context.Background(), "nothing", "", "")
	require.NoError(t, err)
	assert.Empty(t, tracks)
	assert.False(t, videosCalled)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantQuota bool
	}{
		{
			name:      "quota exceeded",
			status:    http.StatusForbidden,
			body:      `{"error": {"code": 403, "message": "The request cannot be completed because you have exceeded your quota.", "errors": [{"reason": "quotaExceeded"}]}}`,
			wantQuota: true,
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{"error": {"code": 400, "message": "Invalid value", "errors": [{"reason": "invalid"}]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))

			_, err := client.Search(context.Background(), "q", "", "")
			require.Error(t, err)
			assert.Equal(t, tt.wantQuota, errors.Is(err, ErrQuotaExceeded))
		})
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())
	_, err := client.Search(context.Background(), "   ", "", "")
	assert.Error(t, err)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"PT4M13S", 253},
		{"PT45S", 45},
		{"PT1H", 3600},
		{"PT1H2M3S", 3723},
		{"P1DT1S", 86401},
		{"P0D", 0},
		{"", 0},
		{"4:13", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDuration(tt.input))
		})
	}
}

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		channel    string
		wantArtist string
		wantTitle  string
	}{
		{name: "artist dash title", title: "Daft Punk - One More Time", channel: "DaftPunkVEVO", wantArtist: "Daft Punk", wantTitle: "One More Time"},
		{name: "bracketed artist", title: "Kesariya (Arijit Singh)", channel: "Sony Music", wantArtist: "Arijit Singh", wantTitle: "Kesariya"},
		{name: "square brackets", title: "Night Drive [Kavinsky]", channel: "x", wantArtist: "Kavinsky", wantTitle: "Night Drive"},
		{name: "long bracket is not an artist", title: "Song (this is a very long description of the video)", channel: "Chan", wantArtist: "Chan", wantTitle: "Song (this is a very long description of the video)"},
		{name: "several dashes", title: "A - B - C", channel: "Chan", wantArtist: "Chan", wantTitle: "A - B - C"},
		{name: "fallbacks", title: "", channel: "", wantArtist: unknownArtist, wantTitle: untitled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artist, title := splitTitle(tt.title, tt.channel)
			assert.Equal(t, tt.wantArtist, artist)
			assert.Equal(t, tt.wantTitle, title)
		})
	}
}
