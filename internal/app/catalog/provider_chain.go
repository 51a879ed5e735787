package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/domain/track"
)

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// ProviderChain tries providers in order until one returns results.
type ProviderChain struct {
	providers []ProviderWithMetadata
}

// NewProviderChain creates a new provider chain.
func NewProviderChain(providers []ProviderWithMetadata) *ProviderChain {
	return &ProviderChain{
		providers: providers,
	}
}

// Search returns the results of the first provider that finds anything.
// A failing provider is skipped; the error is returned only when every
// provider failed.
func (c *ProviderChain) Search(ctx context.Context, q Query) ([]track.Track, error) {
	var errs error
	failed := 0

	for i, pm := range c.providers {
		zlog.Debug().Msgf("catalog: trying provider: index=%d total=%d name=%s provider_type=%s",
			i+1, len(c.providers), pm.DisplayName, pm.Provider.Name())

		results, err := pm.Provider.Search(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), "search cancelled")
			}
			zlog.Warn().Msgf("catalog: provider failed, trying next: provider=%s error=%v", pm.DisplayName, err)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "provider %s", pm.DisplayName))
			failed++
			continue
		}

		if len(results) == 0 {
			zlog.Debug().Msgf("catalog: provider returned no results: provider=%s", pm.DisplayName)
			continue
		}

		zlog.Info().Msgf("catalog: provider returned results: provider=%s count=%d query=%q",
			pm.DisplayName, len(results), q.Text)
		return results, nil
	}

	if failed > 0 && failed == len(c.providers) {
		return nil, errs
	}
	return []track.Track{}, nil
}

// Providers returns the configured providers in order.
func (c *ProviderChain) Providers() []ProviderWithMetadata {
	return c.providers
}

// Name returns the chain name.
func (c *ProviderChain) Name() string {
	return "provider_chain"
}
