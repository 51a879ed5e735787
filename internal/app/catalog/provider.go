// Package catalog provides song search over configurable providers.
package catalog

import (
	"context"

	"github.com/osa030/harmony/internal/domain/track"
)

// Query describes a catalog search.
type Query struct {
	Text string
	// Genre is recorded on results that do not carry one.
	Genre string
	// Order is a provider hint: "relevance", "viewCount" or "date".
	Order string
	Limit int
}

// Provider is the interface for catalog search providers.
// Different implementations search different sources
// (e.g., the video API, the local keyword index).
type Provider interface {
	// Search returns tracks matching the query. An empty result is not an error.
	Search(ctx context.Context, q Query) ([]track.Track, error)

	// Name returns the provider name (used in config).
	Name() string
}

// VideoSearcher is the video API search used by the youtube provider.
type VideoSearcher interface {
	Search(ctx context.Context, query, genre, order string) ([]track.Track, error)
}

// Indexer is the keyword index of known songs.
type Indexer interface {
	Put(ctx context.Context, tracks []track.Track) error
	Search(ctx context.Context, query string, limit int) ([]track.Track, error)
	Remove(ctx context.Context, id string) error
	// WithoutRemoved drops tracks that were removed from the catalog.
	WithoutRemoved(ctx context.Context, tracks []track.Track) ([]track.Track, error)
}
