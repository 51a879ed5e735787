package catalog

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/harmony/internal/app/filter"
	"github.com/osa030/harmony/internal/domain/track"
	"github.com/osa030/harmony/internal/infra/spotify"
)

var (
	ErrEmptyQuery   = errors.New("search query is empty")
	ErrUnknownGenre = errors.New("unknown genre")
)

// Genre is a browsable category and the query used to fill it.
type Genre struct {
	Name  string `json:"name"`
	Query string `json:"query"`
}

// DefaultGenres is used when no genres are configured.
var DefaultGenres = []Genre{
	{Name: "New Songs", Query: "latest indian songs"},
	{Name: "Bollywood", Query: "latest bollywood songs"},
	{Name: "Punjabi", Query: "latest punjabi songs"},
	{Name: "Indi-Pop", Query: "latest indi-pop songs"},
	{Name: "Classical", Query: "latest classical songs"},
	{Name: "Sufi", Query: "latest sufi songs"},
	{Name: "Ghazal", Query: "latest ghazal songs"},
}

// GenreQuery returns the browse query for a genre name.
func GenreQuery(name string) string {
	return "latest " + strings.ToLower(strings.TrimSpace(name)) + " songs"
}

// LinkResolver turns a shared track link into title and artist.
type LinkResolver interface {
	GetTrack(ctx context.Context, idOrURL string) (spotify.Match, error)
}

// BrowseCache holds recent genre browse results.
type BrowseCache interface {
	Get(ctx context.Context, genre string) ([]track.Track, bool, error)
	Put(ctx context.Context, genre string, tracks []track.Track) error
}

// Deps are the collaborators of a Service. Only Providers is required.
type Deps struct {
	Providers *ProviderChain
	Filters   *filter.Chain
	Enricher  *Enricher
	Index     Indexer
	Cache     BrowseCache
	Links     LinkResolver
	Genres    []Genre
}

// Service searches the catalog, filters and enriches results.
type Service struct {
	providers *ProviderChain
	filters   *filter.Chain
	enricher  *Enricher
	index     Indexer
	cache     BrowseCache
	links     LinkResolver
	genres    []Genre
}

// New creates a catalog Service.
func New(deps Deps) *Service {
	filters := deps.Filters
	if filters == nil {
		filters = filter.NewChain()
	}
	genres := lo.Map(deps.Genres, func(g Genre, _ int) Genre {
		if g.Query == "" {
			g.Query = GenreQuery(g.Name)
		}
		return g
	})
	if len(genres) == 0 {
		genres = DefaultGenres
	}
	return &Service{
		providers: deps.Providers,
		filters:   filters,
		enricher:  deps.Enricher,
		index:     deps.Index,
		cache:     deps.Cache,
		links:     deps.Links,
		genres:    genres,
	}
}

// Search finds songs for free text or a shared track link.
func (s *Service) Search(ctx context.Context, text string) ([]track.Track, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuery
	}

	if s.links != nil && spotify.IsTrackLink(text) {
		m, err := s.links.GetTrack(ctx, text)
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve track link")
		}
		resolved := strings.TrimSpace(m.Title + " " + m.Artist)
		zlog.Debug().Msgf("catalog: resolved track link: link=%s query=%q", text, resolved)
		text = resolved
	}

	return s.run(ctx, Query{Text: text})
}

// Browse returns the latest songs of a configured genre, served from the
// cache while it is fresh.
func (s *Service) Browse(ctx context.Context, genre string) ([]track.Track, error) {
	g, ok := lo.Find(s.genres, func(g Genre) bool {
		return strings.EqualFold(g.Name, strings.TrimSpace(genre))
	})
	if !ok {
		return nil, errors.Wrapf(ErrUnknownGenre, "%q", genre)
	}

	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, g.Name)
		if err != nil {
			zlog.Warn().Msgf("catalog: browse cache read failed: genre=%s error=%v", g.Name, err)
		} else if found {
			zlog.Debug().Msgf("catalog: browse cache hit: genre=%s count=%d", g.Name, len(cached))
			return s.withoutRemoved(ctx, cached), nil
		}
	}

	results, err := s.run(ctx, Query{Text: g.Query, Genre: g.Name, Order: "date"})
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(results) > 0 {
		if err := s.cache.Put(ctx, g.Name, results); err != nil {
			zlog.Warn().Msgf("catalog: browse cache write failed: genre=%s error=%v", g.Name, err)
		}
	}
	return results, nil
}

// Genres returns the browsable genres.
func (s *Service) Genres() []Genre {
	return append([]Genre(nil), s.genres...)
}

// Remove drops a song from the index so it is no longer found.
func (s *Service) Remove(ctx context.Context, id string) error {
	if s.index == nil {
		return nil
	}
	if err := s.index.Remove(ctx, id); err != nil {
		return errors.Wrapf(err, "failed to remove %s from catalog", id)
	}
	zlog.Info().Msgf("catalog: removed song: id=%s", id)
	return nil
}

// withoutRemoved drops songs removed from the catalog. Without an index, or
// when the index cannot be read, results pass through unchanged.
func (s *Service) withoutRemoved(ctx context.Context, tracks []track.Track) []track.Track {
	if s.index == nil || len(tracks) == 0 {
		return tracks
	}
	kept, err := s.index.WithoutRemoved(ctx, tracks)
	if err != nil {
		zlog.Warn().Msgf("catalog: removed-song check failed: error=%v", err)
		return tracks
	}
	return kept
}

// Filters returns the result filter chain.
func (s *Service) Filters() *filter.Chain {
	return s.filters
}

func (s *Service) run(ctx context.Context, q Query) ([]track.Track, error) {
	if s.providers == nil {
		return nil, errors.New("no catalog providers configured")
	}

	results, err := s.providers.Search(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "search failed")
	}
	results = s.withoutRemoved(ctx, results)

	accepted := s.filters.Apply(ctx, results)
	if len(accepted) < len(results) {
		zlog.Debug().Msgf("catalog: filtered results: query=%q before=%d after=%d", q.Text, len(results), len(accepted))
	}

	if s.enricher.Enabled() {
		accepted = s.enricher.Enrich(ctx, accepted)
		if s.index != nil {
			if err := s.index.Put(ctx, accepted); err != nil {
				zlog.Warn().Msgf("catalog: failed to index enriched results: error=%v", err)
			}
		}
	}
	return accepted, nil
}
