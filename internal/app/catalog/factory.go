package catalog

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/infra/config"
)

// Sources are the backends providers may be built on. Either may be nil.
type Sources struct {
	Videos VideoSearcher
	Index  Indexer
}

// NewProviderChainFromConfig creates a provider chain from configuration.
func NewProviderChainFromConfig(providerCfgs []config.ProviderConfig, src Sources) (*ProviderChain, error) {
	if len(providerCfgs) == 0 {
		return nil, errors.New("no catalog providers configured")
	}

	var providers []ProviderWithMetadata

	for i, pcfg := range providerCfgs {
		var provider Provider
		var err error
		zlog.Debug().Msgf("catalog: creating provider: index=%d type=%s settings=%+v", i+1, pcfg.Type, pcfg.Settings)
		switch pcfg.Type {
		case "youtube":
			provider, err = NewYouTubeProvider(src.Videos, src.Index, pcfg.Settings)

		case "index":
			provider, err = NewIndexProvider(src.Index, pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		displayName := pcfg.DisplayName
		if displayName == "" {
			displayName = pcfg.Type
		}
		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: displayName,
		})

		zlog.Info().Msgf("catalog: registered provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, displayName)
	}

	return NewProviderChain(providers), nil
}
