package catalog

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/harmony/internal/domain/track"
)

type IndexProviderConfig struct {
	Limit int `mapstructure:"limit" default:"50" validate:"gte=1,lte=500"`
}

// IndexProvider searches songs already known to the keyword index.
type IndexProvider struct {
	index  Indexer
	config *IndexProviderConfig
}

// NewIndexProvider creates a new IndexProvider.
func NewIndexProvider(index Indexer, settings map[string]any) (*IndexProvider, error) {
	if index == nil {
		return nil, errors.New("catalog index is not configured")
	}

	var config IndexProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	return &IndexProvider{index: index, config: &config}, nil
}

// Search looks the query words up in the index.
func (p *IndexProvider) Search(ctx context.Context, q Query) ([]track.Track, error) {
	limit := p.config.Limit
	if q.Limit > 0 && q.Limit < limit {
		limit = q.Limit
	}
	results, err := p.index.Search(ctx, q.Text, limit)
	if err != nil {
		return nil, err
	}
	if q.Genre != "" {
		for i := range results {
			if results[i].Genre == "" {
				results[i].Genre = q.Genre
			}
		}
	}
	return results, nil
}

// Name returns the provider name.
func (p *IndexProvider) Name() string {
	return "index"
}
