package playback

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/app/notification"
	"github.com/osa030/harmony/internal/app/queue"
	"github.com/osa030/harmony/internal/domain/track"
)

// QueueEngine is the part of the queue engine the adapter drives.
type QueueEngine interface {
	Events() <-chan queue.Event
	CurrentTrack() (*track.Track, bool)
	IsPlaying() bool
	Generation() uint64
	SetPlaying(playing bool)
	PlayNext()
	PlayPrev()
	HandleTrackError(trackID string)
}

// CatalogRemover removes permanently unavailable tracks from the library and the catalog.
type CatalogRemover interface {
	RemoveTrackEverywhere(ctx context.Context, trackID string) error
}

// Notifier shows user-visible notices.
type Notifier interface {
	Notify(level notification.Level, title, message string)
}

// Config holds adapter configuration.
type Config struct {
	PollInterval    time.Duration // Progress poll interval (default 1s)
	SeekSettleDelay time.Duration // Delay before polling resumes after a seek (default 150ms)
	InitialVolume   int           // Volume applied on ready (0-100)
}

// Deps holds the adapter collaborators. Catalog, Notifier, Progress and MediaSession are optional.
type Deps struct {
	Engine       QueueEngine
	Element      Element
	Catalog      CatalogRemover
	Notifier     Notifier
	Progress     ProgressSink
	MediaSession MediaSession
}

// Adapter reconciles queue engine intent with the media element.
// All handlers run under a single lock so events are applied one at a time in arrival order.
type Adapter struct {
	mu sync.Mutex

	engine   QueueEngine
	element  Element
	catalog  CatalogRemover
	notifier Notifier
	progress ProgressSink
	session  MediaSession
	config   Config

	// base context for background work (poller, settle timer, catalog removal)
	runCtx context.Context

	loadedID  string
	loadedGen uint64 // engine generation the element was last pointed at
	changing  bool   // a new source is loading; element echo is suppressed
	volume    int
	scrubbing bool
	displayed Progress

	pollCancel   context.CancelFunc
	settleCancel context.CancelFunc
}

// NewAdapter creates a new adapter.
func NewAdapter(cfg Config, deps Deps) *Adapter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.SeekSettleDelay <= 0 {
		cfg.SeekSettleDelay = 150 * time.Millisecond
	}
	return &Adapter{
		engine:   deps.Engine,
		element:  deps.Element,
		catalog:  deps.Catalog,
		notifier: deps.Notifier,
		progress: deps.Progress,
		session:  deps.MediaSession,
		config:   cfg,
		runCtx:   context.Background(),
		volume:   clampVolume(cfg.InitialVolume),
	}
}

// Run processes engine and element events until ctx is cancelled or the engine closes.
func (a *Adapter) Run(ctx context.Context) error {
	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()
	defer a.Stop()

	engineEvents := a.engine.Events()
	elementEvents := a.element.Events()

	zlog.Info().Msg("playback: adapter started")
	for {
		select {
		case <-ctx.Done():
			zlog.Info().Msg("playback: adapter stopped")
			return nil
		case ev, ok := <-engineEvents:
			if !ok {
				zlog.Info().Msg("playback: engine closed, adapter stopped")
				return nil
			}
			a.HandleEngineEvent(ctx, ev)
		case ev, ok := <-elementEvents:
			if !ok {
				elementEvents = nil
				continue
			}
			a.HandleElementEvent(ctx, ev)
		}
	}
}

// Stop cancels the progress poller and any pending settle timer.
func (a *Adapter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopPollingLocked()
	a.cancelSettleLocked()
}

// HandleEngineEvent applies a queue engine event to the element.
// Events emitted before the latest track change are stale and ignored. The
// engine drops events when its channel is full, so any event that arrives
// while the element is behind the engine's generation reloads the engine's
// current track first.
func (a *Adapter) HandleEngineEvent(ctx context.Context, ev queue.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	gen := a.engine.Generation()
	if a.loadedGen < gen && (ev.Type != queue.EventTrackChanged || ev.Generation < gen) {
		cur, _ := a.engine.CurrentTrack()
		zlog.Debug().Msgf("playback: catching up with engine: loaded=%d generation=%d", a.loadedGen, gen)
		a.loadedGen = gen
		a.onTrackChangedLocked(ctx, cur)
		if cur != nil {
			a.mirrorStateLocked()
		}
	}

	if ev.Generation < gen {
		zlog.Debug().Msgf("playback: ignoring stale engine event: type=%s generation=%d", ev.Type, ev.Generation)
		return
	}

	switch ev.Type {
	case queue.EventTrackChanged:
		if ev.Generation <= a.loadedGen {
			return
		}
		a.loadedGen = ev.Generation
		a.onTrackChangedLocked(ctx, ev.Track)
	case queue.EventTrackRestarted:
		a.stopPollingLocked()
		a.setDisplayedLocked(Progress{})
		if err := a.element.Seek(ctx, 0); err != nil {
			zlog.Warn().Msgf("playback: seek failed: error=%v", err)
		}
		a.reconcileLocked(ctx)
	case queue.EventIntentChanged:
		a.mirrorStateLocked()
		if !a.changing {
			a.reconcileLocked(ctx)
		}
	}
}

// HandleElementEvent translates an element event into queue engine transitions.
// Events tagged with a source other than the current track are ignored.
func (a *Adapter) HandleElementEvent(ctx context.Context, ev ElementEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ev.Type == ElementReady {
		zlog.Debug().Msgf("playback: element ready: volume=%d", a.volume)
		if err := a.element.SetVolume(ctx, a.volume); err != nil {
			zlog.Warn().Msgf("playback: set volume failed: error=%v", err)
		}
		return
	}

	cur, ok := a.engine.CurrentTrack()
	if !ok {
		a.stopPollingLocked()
		return
	}
	if ev.SourceID != "" && ev.SourceID != cur.ID {
		zlog.Debug().Msgf("playback: ignoring stale element event: type=%s state=%s source=%s current=%s",
			ev.Type, ev.State, ev.SourceID, cur.ID)
		return
	}

	switch ev.Type {
	case ElementStateChanged:
		a.onStateChangedLocked(ctx, ev.State)
	case ElementError:
		a.onErrorLocked(cur, ev.Code)
	}
}

func (a *Adapter) onTrackChangedLocked(ctx context.Context, t *track.Track) {
	a.stopPollingLocked()
	a.cancelSettleLocked()
	a.scrubbing = false
	a.setDisplayedLocked(Progress{})

	if t == nil {
		a.loadedID = ""
		a.changing = false
		if st := a.element.State(); st == ElementPlaying || st == ElementBuffering {
			if err := a.element.Pause(ctx); err != nil {
				zlog.Warn().Msgf("playback: pause failed: error=%v", err)
			}
		}
		if a.session != nil {
			a.session.SetMetadata(nil)
			a.session.SetPlaybackState(SessionStateNone)
		}
		return
	}

	zlog.Info().Msgf("playback: loading track: id=%s title=%s artist=%s", t.ID, t.Title, t.Artist)
	a.changing = true
	a.loadedID = t.ID
	if err := a.element.Load(ctx, t.ID); err != nil {
		zlog.Warn().Msgf("playback: load failed: id=%s error=%v", t.ID, err)
		a.changing = false
	}
	if a.session != nil {
		a.session.SetMetadata(t)
	}
}

func (a *Adapter) onStateChangedLocked(ctx context.Context, state ElementState) {
	zlog.Debug().Msgf("playback: element state: state=%s changing=%v", state, a.changing)

	switch state {
	case ElementEnded:
		a.stopPollingLocked()
		a.engine.SetPlaying(false)
		a.engine.PlayNext()
	case ElementPlaying:
		a.changing = false
		a.engine.SetPlaying(true)
		a.startPollingLocked()
	case ElementPaused:
		if !a.changing {
			a.engine.SetPlaying(false)
		}
		a.stopPollingLocked()
	case ElementBuffering, ElementUnstarted:
		a.stopPollingLocked()
	case ElementCued:
		if a.engine.IsPlaying() {
			if err := a.element.Play(ctx); err != nil {
				zlog.Warn().Msgf("playback: play failed: error=%v", err)
			}
		}
	}
}

func (a *Adapter) onErrorLocked(cur *track.Track, code int) {
	a.stopPollingLocked()
	a.changing = false

	if IsPermanentError(code) {
		zlog.Warn().Msgf("playback: track permanently unavailable: id=%s code=%d", cur.ID, code)
		a.notify(notification.LevelWarn, "Song unavailable",
			cur.Title+" can no longer be played and was removed from your library.")
		if a.catalog != nil {
			ctx := a.runCtx
			id := cur.ID
			go func() {
				if err := a.catalog.RemoveTrackEverywhere(ctx, id); err != nil {
					zlog.Error().Msgf("playback: catalog removal failed: id=%s error=%v", id, err)
				}
			}()
		}
	} else {
		zlog.Warn().Msgf("playback: playback error: id=%s code=%d", cur.ID, code)
		a.notify(notification.LevelError, "Playback error", "Skipping "+cur.Title+".")
	}

	a.engine.HandleTrackError(cur.ID)
}

// reconcileLocked issues play or pause only when the element disagrees with the intent.
func (a *Adapter) reconcileLocked(ctx context.Context) {
	if a.loadedID == "" {
		return
	}
	want := a.engine.IsPlaying()
	st := a.element.State()
	active := st == ElementPlaying || st == ElementBuffering

	switch {
	case want && !active:
		if err := a.element.Play(ctx); err != nil {
			zlog.Warn().Msgf("playback: play failed: error=%v", err)
		}
	case !want && active:
		if err := a.element.Pause(ctx); err != nil {
			zlog.Warn().Msgf("playback: pause failed: error=%v", err)
		}
	}
}

// SetVolume records the desired volume and applies it to the element.
func (a *Adapter) SetVolume(ctx context.Context, volume int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.volume = clampVolume(volume)
	if err := a.element.SetVolume(ctx, a.volume); err != nil {
		zlog.Warn().Msgf("playback: set volume failed: error=%v", err)
	}
}

// Volume returns the desired volume.
func (a *Adapter) Volume() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.volume
}

// BeginScrub suspends progress polling for a drag gesture.
func (a *Adapter) BeginScrub() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.scrubbing = true
	a.stopPollingLocked()
	a.cancelSettleLocked()
}

// UpdateScrub overrides the displayed progress with an intermediate drag value.
func (a *Adapter) UpdateScrub(percent float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.scrubbing {
		a.scrubbing = true
		a.stopPollingLocked()
		a.cancelSettleLocked()
	}
	percent = clampPercent(percent)
	duration := a.element.Duration()
	a.setDisplayedLocked(Progress{Current: duration * percent / 100, Duration: duration, Percent: percent})
}

// CommitScrub seeks to percent of the duration and resumes polling after the settle delay.
func (a *Adapter) CommitScrub(ctx context.Context, percent float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.scrubbing = false
	duration := a.element.Duration()
	if duration <= 0 {
		// nothing to seek within; resume the poll the scrub suspended
		if a.engine.IsPlaying() && a.pollCancel == nil {
			a.startPollingLocked()
		}
		return
	}
	percent = clampPercent(percent)
	seconds := duration * percent / 100
	if err := a.element.Seek(ctx, seconds); err != nil {
		zlog.Warn().Msgf("playback: seek failed: seconds=%.1f error=%v", seconds, err)
	}
	a.setDisplayedLocked(Progress{Current: seconds, Duration: duration, Percent: percent})

	a.cancelSettleLocked()
	settleCtx, cancel := context.WithCancel(a.runCtx)
	a.settleCancel = cancel
	go func() {
		select {
		case <-settleCtx.Done():
			return
		case <-time.After(a.config.SeekSettleDelay):
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		if settleCtx.Err() != nil {
			return
		}
		a.settleCancel = nil
		cancel()
		if !a.scrubbing && a.engine.IsPlaying() && a.pollCancel == nil {
			a.startPollingLocked()
		}
	}()
}

// HandleMediaAction runs a transport action triggered from the media session.
func (a *Adapter) HandleMediaAction(action MediaAction) {
	zlog.Debug().Msgf("playback: media action: action=%s", action)
	switch action {
	case ActionPlay:
		a.engine.SetPlaying(true)
	case ActionPause:
		a.engine.SetPlaying(false)
	case ActionPreviousTrack:
		a.engine.PlayPrev()
	case ActionNextTrack:
		a.engine.PlayNext()
	}
}

// Progress returns the displayed progress.
func (a *Adapter) Progress() Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.displayed
}

// IsPolling reports whether the progress poller is running.
func (a *Adapter) IsPolling() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pollCancel != nil
}

// IsChangingTrack reports whether a newly loaded track has not started playing yet.
func (a *Adapter) IsChangingTrack() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.changing
}

// startPollingLocked stops any running poller before starting a new one.
func (a *Adapter) startPollingLocked() {
	a.stopPollingLocked()

	ctx, cancel := context.WithCancel(a.runCtx)
	a.pollCancel = cancel
	interval := a.config.PollInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.pollOnce(ctx)
			}
		}
	}()
}

func (a *Adapter) pollOnce(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// cancelled while waiting for the lock
	if ctx.Err() != nil || a.scrubbing {
		return
	}
	current := a.element.CurrentTime()
	duration := a.element.Duration()
	a.setDisplayedLocked(progressOf(current, duration))
	if a.session != nil && duration > 0 {
		a.session.SetPosition(current, duration)
	}
}

// stopPollingLocked is a no-op when no poller runs.
func (a *Adapter) stopPollingLocked() {
	if a.pollCancel != nil {
		a.pollCancel()
		a.pollCancel = nil
	}
}

func (a *Adapter) cancelSettleLocked() {
	if a.settleCancel != nil {
		a.settleCancel()
		a.settleCancel = nil
	}
}

func (a *Adapter) setDisplayedLocked(p Progress) {
	a.displayed = p
	if a.progress != nil {
		a.progress.PublishProgress(p)
	}
}

func (a *Adapter) mirrorStateLocked() {
	if a.session == nil {
		return
	}
	if a.engine.IsPlaying() {
		a.session.SetPlaybackState(SessionStatePlaying)
	} else {
		a.session.SetPlaybackState(SessionStatePaused)
	}
}

func (a *Adapter) notify(level notification.Level, title, message string) {
	if a.notifier != nil {
		a.notifier.Notify(level, title, message)
	}
}

func clampVolume(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
