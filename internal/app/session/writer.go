package session

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/app/notification"
	"github.com/osa030/harmony/internal/app/queue"
	"github.com/osa030/harmony/internal/domain/track"
	"github.com/osa030/harmony/internal/infra/store"
)

// SnapshotWriter persists queue snapshots in the background.
// Only the latest pending snapshot is written; failures are reported and never retried.
type SnapshotWriter struct {
	kv       store.KV
	notifier Notifier

	mu      sync.Mutex
	pending *queue.Snapshot
	wake    chan struct{}
	writes  int
}

var _ queue.Persister = (*SnapshotWriter)(nil)

// NewSnapshotWriter creates a writer. notifier may be nil.
func NewSnapshotWriter(kv store.KV, notifier Notifier) *SnapshotWriter {
	return &SnapshotWriter{
		kv:       kv,
		notifier: notifier,
		wake:     make(chan struct{}, 1),
	}
}

// Persist records the snapshot as pending and returns immediately.
func (w *SnapshotWriter) Persist(s queue.Snapshot) {
	w.mu.Lock()
	w.pending = &s
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run writes pending snapshots until ctx is cancelled, then flushes what is left.
func (w *SnapshotWriter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Flush(context.WithoutCancel(ctx))
			return
		case <-w.wake:
			w.Flush(ctx)
		}
	}
}

// Flush writes the pending snapshot, if any, synchronously.
func (w *SnapshotWriter) Flush(ctx context.Context) {
	w.mu.Lock()
	s := w.pending
	w.pending = nil
	w.mu.Unlock()
	if s == nil {
		return
	}

	if err := SaveSnapshot(ctx, w.kv, *s); err != nil {
		zlog.Error().Err(err).Msg("session: failed to save playback state")
		if w.notifier != nil {
			w.notifier.Notify(notification.LevelWarn, "Could not save", "Your queue could not be saved")
		}
		return
	}

	w.mu.Lock()
	w.writes++
	w.mu.Unlock()
}

// Writes returns the number of successful writes.
func (w *SnapshotWriter) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

// SaveSnapshot writes the current track, queue and history.
// A nil current track deletes the stored one.
func SaveSnapshot(ctx context.Context, kv store.KV, s queue.Snapshot) error {
	if s.CurrentTrack != nil {
		if err := kv.Set(ctx, store.KeyCurrentTrack, s.CurrentTrack); err != nil {
			return errors.Wrap(err, "failed to save current track")
		}
	} else if err := kv.Delete(ctx, store.KeyCurrentTrack); err != nil {
		return errors.Wrap(err, "failed to clear current track")
	}
	if err := kv.Set(ctx, store.KeyCurrentQueue, nonNil(s.Queue)); err != nil {
		return errors.Wrap(err, "failed to save queue")
	}
	if err := kv.Set(ctx, store.KeyPlayHistory, nonNil(s.History)); err != nil {
		return errors.Wrap(err, "failed to save history")
	}
	return nil
}

// LoadSnapshot reads the persisted current track, queue and history.
// Missing keys yield empty values.
func LoadSnapshot(ctx context.Context, kv store.KV) (queue.Snapshot, error) {
	var s queue.Snapshot

	var cur track.Track
	found, err := kv.Get(ctx, store.KeyCurrentTrack, &cur)
	if err != nil {
		return s, errors.Wrap(err, "failed to load current track")
	}
	if found && cur.ID != "" {
		s.CurrentTrack = &cur
	}
	if _, err := kv.Get(ctx, store.KeyCurrentQueue, &s.Queue); err != nil {
		return s, errors.Wrap(err, "failed to load queue")
	}
	if _, err := kv.Get(ctx, store.KeyPlayHistory, &s.History); err != nil {
		return s, errors.Wrap(err, "failed to load history")
	}
	s.Queue = nonNil(s.Queue)
	s.History = nonNil(s.History)
	return s, nil
}

func nonNil(tracks []track.Track) []track.Track {
	if tracks == nil {
		return []track.Track{}
	}
	return tracks
}
