// Package store defines the key/value contract used to persist per-user state.
package store

import "context"

// Keys of the persisted documents.
const (
	KeyCurrentTrack  = "current-track"
	KeyCurrentQueue  = "current-queue"
	KeyPlayHistory   = "play-history"
	KeyZoom          = "video-zoom-preference"
	KeySearchHistory = "search-history"
	KeyPlaylists     = "playlists"
)

// Keys lists every key owned by a session.
var Keys = []string{
	KeyCurrentTrack,
	KeyCurrentQueue,
	KeyPlayHistory,
	KeyZoom,
	KeySearchHistory,
	KeyPlaylists,
}

// KV stores JSON documents by key.
// Get reports false when the key has never been written.
type KV interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}
