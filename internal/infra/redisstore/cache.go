package redisstore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/osa030/harmony/internal/domain/track"
)

// BrowseCache keeps genre browse results for a limited time under
// <prefix>:catalog:cache:<genre>.
type BrowseCache struct {
	client *Client
	ttl    time.Duration
}

// BrowseCache returns a genre result cache whose entries expire after ttl.
func (c *Client) BrowseCache(ttl time.Duration) *BrowseCache {
	return &BrowseCache{client: c, ttl: ttl}
}

func (b *BrowseCache) key(genre string) string {
	return b.client.key("catalog", "cache", strings.ToLower(strings.TrimSpace(genre)))
}

// Get returns the cached results for genre. found is false on a miss or expiry.
func (b *BrowseCache) Get(ctx context.Context, genre string) ([]track.Track, bool, error) {
	data, err := b.client.rdb.Get(ctx, b.key(genre)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read cache for %s", genre)
	}

	var tracks []track.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, false, errors.Wrapf(err, "failed to decode cache for %s", genre)
	}
	return tracks, true, nil
}

// Put stores results for genre.
func (b *BrowseCache) Put(ctx context.Context, genre string, tracks []track.Track) error {
	data, err := json.Marshal(tracks)
	if err != nil {
		return errors.Wrapf(err, "failed to encode cache for %s", genre)
	}
	if err := b.client.rdb.Set(ctx, b.key(genre), data, b.ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to write cache for %s", genre)
	}
	return nil
}
