package catalog

import (
	"context"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/osa030/harmony/internal/domain/track"
	"github.com/osa030/harmony/internal/infra/spotify"
)

const defaultEnrichConcurrency = 4

// MetadataSource looks up album and release year.
type MetadataSource interface {
	Lookup(ctx context.Context, title, artist string) (spotify.Match, bool, error)
}

// GenreSource looks up a genre for a track.
type GenreSource interface {
	Genre(ctx context.Context, title, artist string) (string, bool, error)
}

// Enricher fills missing metadata on search results. Lookup failures leave
// the track as it was.
type Enricher struct {
	metadata    MetadataSource
	genres      GenreSource
	concurrency int
}

// NewEnricher creates an Enricher. Either source may be nil.
func NewEnricher(metadata MetadataSource, genres GenreSource, concurrency int) *Enricher {
	if concurrency <= 0 {
		concurrency = defaultEnrichConcurrency
	}
	return &Enricher{metadata: metadata, genres: genres, concurrency: concurrency}
}

// Enabled reports whether any source is configured.
func (e *Enricher) Enabled() bool {
	return e != nil && (e.metadata != nil || e.genres != nil)
}

// Enrich returns a copy of tracks with album, year and genre filled in where found.
func (e *Enricher) Enrich(ctx context.Context, tracks []track.Track) []track.Track {
	out := make([]track.Track, len(tracks))
	copy(out, tracks)
	if !e.Enabled() {
		return out
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := range out {
		i := i
		g.Go(func() error {
			e.enrichOne(ctx, &out[i])
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Enricher) enrichOne(ctx context.Context, t *track.Track) {
	if ctx.Err() != nil {
		return
	}
	changed := false

	if e.metadata != nil && t.Album == "" {
		m, found, err := e.metadata.Lookup(ctx, t.Title, t.Artist)
		switch {
		case err != nil:
			zlog.Debug().Msgf("catalog: metadata lookup failed: id=%s error=%v", t.ID, err)
		case found:
			t.Album = m.Album
			if m.Year > 0 {
				t.Year = m.Year
			}
			changed = true
		}
	}

	if e.genres != nil && t.Genre == "" && t.Artist != "" {
		genre, found, err := e.genres.Genre(ctx, t.Title, t.Artist)
		switch {
		case err != nil:
			zlog.Debug().Msgf("catalog: genre lookup failed: id=%s error=%v", t.ID, err)
		case found:
			t.Genre = genre
			changed = true
		}
	}

	if changed {
		t.Keywords = track.BuildKeywords(t.Title, t.Artist, t.Genre)
	}
}
