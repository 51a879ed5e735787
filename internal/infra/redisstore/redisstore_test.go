package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/harmony/internal/domain/track"
	"github.com/osa030/harmony/internal/infra/store"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := Wrap(rdb, "")
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewClient(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	defer c.Close()

	_, err = NewClient(context.Background(), Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestUserStore(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := c.ForUser("")
	assert.ErrorIs(t, err, ErrEmptyUser)

	s, err := c.ForUser("u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID())

	t.Run("missing key", func(t *testing.T) {
		var q []track.Track
		found, err := s.Get(ctx, store.KeyCurrentQueue, &q)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("set and get", func(t *testing.T) {
		in := []string{"lofi", "jazz"}
		require.NoError(t, s.Set(ctx, store.KeySearchHistory, in))
		assert.True(t, mr.Exists("harmony:user:u1:search-history"))

		var out []string
		found, err := s.Get(ctx, store.KeySearchHistory, &out)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, in, out)
	})

	t.Run("namespaced per user", func(t *testing.T) {
		other, err := c.ForUser("u2")
		require.NoError(t, err)
		var out []string
		found, err := other.Get(ctx, store.KeySearchHistory, &out)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, store.KeySearchHistory))
		assert.False(t, mr.Exists("harmony:user:u1:search-history"))
	})

	t.Run("corrupt document", func(t *testing.T) {
		require.NoError(t, mr.Set("harmony:user:u1:playlists", "{oops"))
		var out []string
		_, err := s.Get(ctx, store.KeyPlaylists, &out)
		assert.Error(t, err)
	})
}

func TestIndex_PutSearchRemove(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	idx := c.Catalog()

	songs := []track.Track{
		{ID: "v1", Title: "Blue Monday", Artist: "New Order", Genre: "Synth", Duration: 450},
		{ID: "v2", Title: "Blue in Green", Artist: "Miles Davis", Genre: "Jazz", Duration: 337},
		{ID: "v3", Title: "So What", Artist: "Miles Davis", Genre: "Jazz", Duration: 562},
	}
	require.NoError(t, idx.Put(ctx, songs))
	assert.True(t, mr.Exists("harmony:catalog:song:v1"))

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{name: "prefix", query: "blu", want: []string{"v1", "v2"}},
		{name: "all words must match", query: "blue miles", want: []string{"v2"}},
		{name: "case insensitive", query: "MILES", want: []string{"v2", "v3"}},
		{name: "genre", query: "jazz", want: []string{"v2", "v3"}},
		{name: "limit", query: "miles", limit: 1, want: []string{"v2"}},
		{name: "no match", query: "zeppelin", want: []string{}},
		{name: "blank", query: "   ", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Search(ctx, tt.query, tt.limit)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, g := range got {
				ids = append(ids, g.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	require.NoError(t, idx.Remove(ctx, "v2"))
	require.NoError(t, idx.Remove(ctx, "unknown"))
	assert.False(t, mr.Exists("harmony:catalog:song:v2"))

	got, err := idx.Search(ctx, "blue", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v1", got[0].ID)

	_, found, err := idx.Get(ctx, "v2")
	require.NoError(t, err)
	assert.False(t, found)

	stored, found, err := idx.Get(ctx, "v3")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotEmpty(t, stored.Keywords)
}

func TestIndex_RemovedSongsStayOut(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	idx := c.Catalog()

	song := track.Track{ID: "v1", Title: "Blue Monday", Artist: "New Order", Duration: 450}
	require.NoError(t, idx.Put(ctx, []track.Track{song}))
	require.NoError(t, idx.Remove(ctx, "v1"))
	require.NoError(t, idx.Remove(ctx, "never-indexed"))

	require.NoError(t, idx.Put(ctx, []track.Track{song, {ID: "v2", Title: "Blue Velvet", Artist: "Bobby Vinton"}}))
	assert.False(t, mr.Exists("harmony:catalog:song:v1"))
	assert.True(t, mr.Exists("harmony:catalog:song:v2"))

	got, err := idx.Search(ctx, "blue", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v2", got[0].ID)

	// a keyword entry left behind by an older writer is still skipped
	_, err = mr.SAdd("harmony:catalog:kw:blue", "v1")
	require.NoError(t, err)
	got, err = idx.Search(ctx, "blue", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	kept, err := idx.WithoutRemoved(ctx, []track.Track{{ID: "never-indexed"}, {ID: "v3"}, song})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "v3", kept[0].ID)
}

func TestBrowseCache(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	cache := c.BrowseCache(time.Hour)

	_, found, err := cache.Get(ctx, "Sufi")
	require.NoError(t, err)
	assert.False(t, found)

	tracks := []track.Track{{ID: "v1", Title: "Kun Faya Kun", Genre: "Sufi", Duration: 450}}
	require.NoError(t, cache.Put(ctx, "Sufi", tracks))
	assert.True(t, mr.Exists("harmony:catalog:cache:sufi"))

	got, found, err := cache.Get(ctx, " sufi ")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, tracks, got)

	mr.FastForward(2 * time.Hour)
	_, found, err = cache.Get(ctx, "Sufi")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, mr.Set("harmony:catalog:cache:broken", "{"))
	_, _, err = cache.Get(ctx, "broken")
	assert.Error(t, err)
}
