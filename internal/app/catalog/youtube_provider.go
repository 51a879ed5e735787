package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/domain/track"
)

type YouTubeProviderConfig struct {
	Order     string `mapstructure:"order" validate:"omitempty,oneof=relevance viewCount date rating"`
	SkipIndex bool   `mapstructure:"skip_index"`
}

// YouTubeProvider searches the video API and writes results back into the index.
type YouTubeProvider struct {
	videos VideoSearcher
	index  Indexer
	config *YouTubeProviderConfig
}

// NewYouTubeProvider creates a new YouTubeProvider. index may be nil.
func NewYouTubeProvider(videos VideoSearcher, index Indexer, settings map[string]any) (*YouTubeProvider, error) {
	if videos == nil {
		return nil, errors.New("youtube client is not configured")
	}

	var config YouTubeProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("catalog: youtube provider config: %+v", config)
	if config.SkipIndex {
		index = nil
	}
	return &YouTubeProvider{videos: videos, index: index, config: &config}, nil
}

// Search queries the video API.
func (p *YouTubeProvider) Search(ctx context.Context, q Query) ([]track.Track, error) {
	order := q.Order
	if order == "" {
		order = p.config.Order
	}

	results, err := p.videos.Search(ctx, q.Text, q.Genre, order)
	if err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	if p.index != nil && len(results) > 0 {
		if err := p.index.Put(ctx, results); err != nil {
			zlog.Warn().Msgf("catalog: failed to index search results: count=%d error=%v", len(results), err)
		}
	}
	return results, nil
}

// Name returns the provider name.
func (p *YouTubeProvider) Name() string {
	return "youtube"
}
