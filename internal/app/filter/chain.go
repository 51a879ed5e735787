package filter

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/domain/track"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig builds a chain from the enabled filters and their settings,
// in name order.
func NewChainFromConfig(enabled map[string]map[string]any) (*Chain, error) {
	names := make([]string, 0, len(enabled))
	for name := range enabled {
		names = append(names, name)
	}
	sort.Strings(names)

	c := NewChain()
	for _, name := range names {
		factory, ok := registry[name]
		if !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}
		f := factory()
		if err := f.ValidateConfig(enabled[name]); err != nil {
			return nil, errors.Wrapf(err, "invalid settings for filter %s", name)
		}
		c.Add(f)
		zlog.Info().Msgf("filter: registered: name=%s", name)
	}
	return c, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track.
func (c *Chain) Execute(ctx context.Context, t track.Track, accepted []track.Track) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, t, accepted)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Apply returns the tracks accepted by every filter, in their original order.
func (c *Chain) Apply(ctx context.Context, tracks []track.Track) []track.Track {
	accepted := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		result := c.Execute(ctx, t, accepted)
		if !result.Accepted {
			zlog.Debug().Msgf("filter: rejected: id=%s title=%s code=%s", t.ID, t.Title, result.Code)
			continue
		}
		accepted = append(accepted, t)
	}
	return accepted
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
