package redisstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/harmony/internal/domain/track"
)

// Index is the keyword-indexed song catalog.
//
//	<prefix>:catalog:song:<id>     JSON document of the track
//	<prefix>:catalog:kw:<keyword>  set of track ids
//	<prefix>:catalog:removed       set of track ids that must not come back
type Index struct {
	client *Client
}

// Catalog returns the song index backed by this client.
func (c *Client) Catalog() *Index {
	return &Index{client: c}
}

func (x *Index) songKey(id string) string {
	return x.client.key("catalog", "song", id)
}

func (x *Index) keywordKey(kw string) string {
	return x.client.key("catalog", "kw", kw)
}

func (x *Index) removedKey() string {
	return x.client.key("catalog", "removed")
}

// removedFlags reports, per id, whether the id was removed from the catalog.
func (x *Index) removedFlags(ctx context.Context, ids []string) ([]bool, error) {
	if len(ids) == 0 {
		return []bool{}, nil
	}
	flags, err := x.client.rdb.SMIsMember(ctx, x.removedKey(), lo.ToAnySlice(ids)...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to check removed songs")
	}
	return flags, nil
}

// WithoutRemoved drops tracks that were removed from the catalog.
func (x *Index) WithoutRemoved(ctx context.Context, tracks []track.Track) ([]track.Track, error) {
	flags, err := x.removedFlags(ctx, lo.Map(tracks, func(t track.Track, _ int) string { return t.ID }))
	if err != nil {
		return nil, err
	}
	return lo.Filter(tracks, func(_ track.Track, i int) bool { return !flags[i] }), nil
}

func keywordsOf(t track.Track) []string {
	if len(t.Keywords) > 0 {
		return t.Keywords
	}
	return track.BuildKeywords(t.Title, t.Artist, t.Genre)
}

// Put stores the tracks and indexes their keywords. Removed songs are skipped.
func (x *Index) Put(ctx context.Context, tracks []track.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	tracks, err := x.WithoutRemoved(ctx, tracks)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return nil
	}

	_, err = x.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, t := range tracks {
			t.Keywords = keywordsOf(t)
			data, err := json.Marshal(t)
			if err != nil {
				return errors.Wrapf(err, "failed to encode song %s", t.ID)
			}
			pipe.Set(ctx, x.songKey(t.ID), data, 0)
			for _, kw := range t.Keywords {
				pipe.SAdd(ctx, x.keywordKey(kw), t.ID)
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to index songs")
	}

	zlog.Debug().Msgf("redisstore: indexed songs: count=%d", len(tracks))
	return nil
}

// Get returns a single song by id.
func (x *Index) Get(ctx context.Context, id string) (track.Track, bool, error) {
	data, err := x.client.rdb.Get(ctx, x.songKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return track.Track{}, false, nil
	}
	if err != nil {
		return track.Track{}, false, errors.Wrapf(err, "failed to get song %s", id)
	}
	var t track.Track
	if err := json.Unmarshal(data, &t); err != nil {
		return track.Track{}, false, errors.Wrapf(err, "failed to decode song %s", id)
	}
	return t, true, nil
}

// queryKeywords turns free text into index keywords. Every word must match.
func queryKeywords(query string) []string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	return lo.Uniq(words)
}

// Search returns songs matching every word of the query, up to limit.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]track.Track, error) {
	kws := queryKeywords(query)
	if len(kws) == 0 {
		return []track.Track{}, nil
	}

	keys := lo.Map(kws, func(kw string, _ int) string { return x.keywordKey(kw) })
	ids, err := x.client.rdb.SInter(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search index: query=%s", query)
	}
	if len(ids) == 0 {
		return []track.Track{}, nil
	}
	// Set members come back unordered.
	ids = lo.Uniq(ids)
	sort.Strings(ids)
	flags, err := x.removedFlags(ctx, ids)
	if err != nil {
		return nil, err
	}
	ids = lo.Filter(ids, func(_ string, i int) bool { return !flags[i] })
	if len(ids) == 0 {
		return []track.Track{}, nil
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	songKeys := lo.Map(ids, func(id string, _ int) string { return x.songKey(id) })
	values, err := x.client.rdb.MGet(ctx, songKeys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load songs")
	}

	results := make([]track.Track, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			zlog.Warn().Msgf("redisstore: dangling keyword entry: id=%s", ids[i])
			continue
		}
		var t track.Track
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			zlog.Warn().Err(err).Msgf("redisstore: skipping undecodable song: id=%s", ids[i])
			continue
		}
		results = append(results, t)
	}
	return results, nil
}

// Remove deletes a song and its keyword memberships, and records the id so
// later Put and Search calls skip it. Unknown ids are recorded too.
func (x *Index) Remove(ctx context.Context, id string) error {
	t, found, err := x.Get(ctx, id)
	if err != nil {
		return err
	}

	_, err = x.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if found {
			for _, kw := range keywordsOf(t) {
				pipe.SRem(ctx, x.keywordKey(kw), id)
			}
			pipe.Del(ctx, x.songKey(id))
		}
		pipe.SAdd(ctx, x.removedKey(), id)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to remove song %s", id)
	}

	zlog.Info().Msgf("redisstore: removed song: id=%s, indexed=%t", id, found)
	return nil
}
