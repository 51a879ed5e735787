// Package session wires the queue engine, the playback adapter and the
// user's library into one running player session.
package session

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/harmony/internal/app/library"
	"github.com/osa030/harmony/internal/app/notification"
	"github.com/osa030/harmony/internal/app/playback"
	"github.com/osa030/harmony/internal/app/queue"
	"github.com/osa030/harmony/internal/app/searchhistory"
	"github.com/osa030/harmony/internal/domain/track"
	"github.com/osa030/harmony/internal/infra/store"
)

var (
	ErrSessionRunning    = errors.New("session is already running")
	ErrSessionNotRunning = errors.New("session is not running")
	ErrInvalidZoom       = errors.New("invalid zoom level")
)

// ZoomLevels lists the accepted video zoom levels.
var ZoomLevels = []float64{1, 1.25, 1.5}

const defaultZoom = 1.0

// Notifier shows user-visible notices.
type Notifier interface {
	Notify(level notification.Level, title, message string)
}

// Config holds session configuration.
type Config struct {
	Player playback.Config
	Queue  queue.Config
}

// Deps holds the session collaborators. Catalog, Progress and MediaSession are optional.
type Deps struct {
	Store         store.KV
	Element       playback.Element
	Catalog       library.Catalog
	Notifications *notification.Manager
	Progress      playback.ProgressSink
	MediaSession  playback.MediaSession
}

// Manager manages the player session of one user.
type Manager struct {
	mu sync.RWMutex

	kv                store.KV
	notifications     *notification.Manager
	ownsNotifications bool

	// Components
	writer  *SnapshotWriter
	engine  *queue.Engine
	adapter *playback.Adapter
	library *library.Service
	history *searchhistory.History

	zoom float64

	// Lifecycle
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	done    chan struct{}
}

// NewManager creates a new session manager.
func NewManager(cfg Config, deps Deps) *Manager {
	notifications := deps.Notifications
	owns := false
	if notifications == nil {
		notifications = notification.NewManager()
		owns = true
	}

	m := &Manager{
		kv:                deps.Store,
		notifications:     notifications,
		ownsNotifications: owns,
		writer:            NewSnapshotWriter(deps.Store, notifications),
		history:           searchhistory.New(deps.Store),
		zoom:              defaultZoom,
		done:              make(chan struct{}),
	}

	m.engine = queue.NewEngine(cfg.Queue, m.writer)
	m.library = library.New(library.Deps{
		Store:    deps.Store,
		Current:  m.engine,
		Catalog:  deps.Catalog,
		Notifier: notifications,
	})
	m.adapter = playback.NewAdapter(cfg.Player, playback.Deps{
		Engine:       m.engine,
		Element:      deps.Element,
		Catalog:      m.library,
		Notifier:     notifications,
		Progress:     deps.Progress,
		MediaSession: deps.MediaSession,
	})

	return m
}

// Start rehydrates persisted state and starts the background loops.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrSessionRunning
	}

	if err := m.library.Init(ctx); err != nil {
		zlog.Warn().Err(err).Msg("session: playlists unavailable, starting with liked songs only")
		m.notifications.Notify(notification.LevelWarn, "Could not restore", "Your playlists could not be loaded")
	}
	if err := m.history.Load(ctx); err != nil {
		zlog.Warn().Err(err).Msg("session: search history unavailable, starting empty")
	}
	m.loadZoomLocked(ctx)

	snapshot, err := LoadSnapshot(ctx, m.kv)
	if err != nil {
		zlog.Warn().Err(err).Msg("session: playback state unavailable, starting empty")
		m.notifications.Notify(notification.LevelWarn, "Could not restore", "Your previous queue could not be loaded")
		snapshot = queue.Snapshot{}
	}
	m.engine.Restore(snapshot)
	zlog.Info().Msgf("session: restored: queue=%d, history=%d, current=%t",
		len(snapshot.Queue), len(snapshot.History), snapshot.CurrentTrack != nil)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.running = true

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.writer.Run(runCtx)
	}()
	go func() {
		defer m.wg.Done()
		if err := m.adapter.Run(runCtx); err != nil {
			zlog.Error().Err(err).Msg("session: playback adapter stopped")
		}
	}()

	zlog.Info().Msg("session: started")
	return nil
}

// Stop stops the background loops and flushes pending state. It is idempotent.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.engine.Close()
	m.writer.Flush(context.Background())
	if m.ownsNotifications {
		m.notifications.Close()
	}
	close(m.done)

	zlog.Info().Msg("session: stopped")
	return nil
}

// Done returns a channel that is closed when the session is stopped.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// IsRunning reports whether Start has been called and Stop has not.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Engine returns the queue engine.
func (m *Manager) Engine() *queue.Engine {
	return m.engine
}

// Adapter returns the playback adapter.
func (m *Manager) Adapter() *playback.Adapter {
	return m.adapter
}

// Library returns the playlist membership service.
func (m *Manager) Library() *library.Service {
	return m.library
}

// SearchHistory returns the search history.
func (m *Manager) SearchHistory() *searchhistory.History {
	return m.history
}

// Notifications returns the notification manager.
func (m *Manager) Notifications() *notification.Manager {
	return m.notifications
}

func (m *Manager) loadZoomLocked(ctx context.Context) {
	var zoom float64
	found, err := m.kv.Get(ctx, store.KeyZoom, &zoom)
	if err != nil {
		zlog.Warn().Err(err).Msg("session: zoom preference unavailable")
		return
	}
	if found && lo.Contains(ZoomLevels, zoom) {
		m.zoom = zoom
	}
}

// SetZoom stores the video zoom preference.
func (m *Manager) SetZoom(ctx context.Context, zoom float64) error {
	if !lo.Contains(ZoomLevels, zoom) {
		return errors.Wrapf(ErrInvalidZoom, "zoom=%v", zoom)
	}

	m.mu.Lock()
	m.zoom = zoom
	m.mu.Unlock()

	if err := m.kv.Set(ctx, store.KeyZoom, zoom); err != nil {
		return errors.Wrap(err, "failed to save zoom preference")
	}
	return nil
}

// Zoom returns the video zoom preference.
func (m *Manager) Zoom() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.zoom
}

// View is a read-only summary of the session for clients.
type View struct {
	State        string            `json:"state"`
	Playing      bool              `json:"playing"`
	CurrentTrack *track.Track      `json:"currentTrack"`
	CurrentLiked bool              `json:"currentLiked"`
	Queue        []track.Track     `json:"queue"`
	History      []track.Track     `json:"history"`
	Progress     playback.Progress `json:"progress"`
	Volume       int               `json:"volume"`
	Zoom         float64           `json:"zoom"`
}

// View returns the current session summary.
func (m *Manager) View() View {
	cur, _ := m.engine.CurrentTrack()
	return View{
		State:        m.engine.State().String(),
		Playing:      m.engine.IsPlaying(),
		CurrentTrack: cur,
		CurrentLiked: m.library.IsCurrentLiked(),
		Queue:        m.engine.Queue(),
		History:      m.engine.History(),
		Progress:     m.adapter.Progress(),
		Volume:       m.adapter.Volume(),
		Zoom:         m.Zoom(),
	}
}
