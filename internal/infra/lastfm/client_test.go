package lastfm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{APIKey: "test_key", BaseURL: server.URL + "/", HTTPClient: server.Client()})
	require.NoError(t, err)
	return client
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGetTopTags(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "track.getTopTags", r.URL.Query().Get("method"))
		assert.Equal(t, "test_artist", r.URL.Query().Get("artist"))
		assert.Equal(t, "test_track", r.URL.Query().Get("track"))
		assert.Equal(t, "test_key", r.URL.Query().Get("api_key"))

		response := `{
			"toptags": {
				"tag": [
					{"name": "rock", "count": 100, "url": "http://last.fm/tag/rock"},
					{"name": "alternative", "count": 80, "url": "http://last.fm/tag/alternative"}
				]
			}
		}`
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, response)
	})

	ctx := context.Background()
	tags, err := client.GetTopTags(ctx, "test_track", "test_artist", 5)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
	assert.Equal(t, "rock", tags[0].Name)
	assert.Equal(t, 100, tags[0].Count)

	tagsCached, err := client.GetTopTags(ctx, "TEST_TRACK", "Test_Artist", 1)
	require.NoError(t, err)
	assert.Equal(t, tags[:1], tagsCached)
	assert.Equal(t, 1, calls, "second lookup should be served from cache")
}

func TestGetTopTags_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": 6, "message": "Track not found"}`)
	})

	_, err := client.GetTopTags(context.Background(), "x", "y", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Track not found")
}

func TestGetTopTags_RequiresNames(t *testing.T) {
	client, err := New(Config{APIKey: "k"})
	require.NoError(t, err)

	_, err = client.GetTopTags(context.Background(), "", "artist", 5)
	assert.Error(t, err)
}

func TestGenre(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantGenre string
		wantFound bool
	}{
		{
			name:      "first tag",
			body:      `{"toptags": {"tag": [{"name": "synth-pop", "count": 100}, {"name": "new wave", "count": 90}]}}`,
			wantGenre: "Synth-pop",
			wantFound: true,
		},
		{
			name:      "skips noise and artist name",
			body:      `{"toptags": {"tag": [{"name": "seen live", "count": 100}, {"name": "New Order", "count": 95}, {"name": "post-punk", "count": 50}]}}`,
			wantGenre: "Post-punk",
			wantFound: true,
		},
		{
			name:      "multi-word",
			body:      `{"toptags": {"tag": [{"name": "INDIE pop", "count": 10}]}}`,
			wantGenre: "Indie Pop",
			wantFound: true,
		},
		{
			name:      "no usable tag",
			body:      `{"toptags": {"tag": [{"name": "favorites", "count": 1}]}}`,
			wantFound: false,
		},
		{
			name:      "no tags",
			body:      `{"toptags": {"tag": []}}`,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			})

			genre, found, err := client.Genre(context.Background(), "Blue Monday", "New Order")
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantGenre, genre)
		})
	}
}
