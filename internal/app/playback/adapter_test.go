package playback

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/harmony/internal/app/notification"
	"github.com/osa030/harmony/internal/app/queue"
	"github.com/osa030/harmony/internal/domain/track"
)

// mockElement is an in-memory media element.
type mockElement struct {
	mu       sync.Mutex
	calls    []string
	loaded   []string
	seeks    []float64
	volumes  []int
	state    ElementState
	current  float64
	duration float64
	events   chan ElementEvent
}

func newMockElement() *mockElement {
	return &mockElement{state: ElementUnstarted, duration: 200, events: make(chan ElementEvent, 16)}
}

func (m *mockElement) record(call string) {
	m.calls = append(m.calls, call)
}

func (m *mockElement) Load(_ context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("load")
	m.loaded = append(m.loaded, sourceID)
	m.state = ElementUnstarted
	return nil
}

func (m *mockElement) Play(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("play")
	return nil
}

func (m *mockElement) Pause(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("pause")
	return nil
}

func (m *mockElement) Seek(_ context.Context, seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("seek")
	m.seeks = append(m.seeks, seconds)
	return nil
}

func (m *mockElement) SetVolume(_ context.Context, volume int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("volume")
	m.volumes = append(m.volumes, volume)
	return nil
}

func (m *mockElement) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *mockElement) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *mockElement) State() ElementState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockElement) Events() <-chan ElementEvent {
	return m.events
}

func (m *mockElement) setState(s ElementState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *mockElement) setTime(current float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = current
}

func (m *mockElement) count(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *mockElement) loadedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loaded...)
}

func (m *mockElement) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

type mockCatalog struct {
	mu      sync.Mutex
	removed []string
}

func (c *mockCatalog) RemoveTrackEverywhere(_ context.Context, trackID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = append(c.removed, trackID)
	return nil
}

func (c *mockCatalog) removedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.removed...)
}

type mockNotifier struct {
	mu     sync.Mutex
	levels []notification.Level
}

func (n *mockNotifier) Notify(level notification.Level, _, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.levels = append(n.levels, level)
}

type mockSession struct {
	mu     sync.Mutex
	meta   []*track.Track
	states []string
}

func (s *mockSession) SetMetadata(t *track.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta = append(s.meta, t)
}

func (s *mockSession) SetPlaybackState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *mockSession) SetPosition(float64, float64) {}

type fixture struct {
	engine   *queue.Engine
	element  *mockElement
	catalog  *mockCatalog
	notifier *mockNotifier
	session  *mockSession
	adapter  *Adapter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		engine:   queue.NewEngine(queue.Config{Rand: rand.New(rand.NewSource(1))}, nil),
		element:  newMockElement(),
		catalog:  &mockCatalog{},
		notifier: &mockNotifier{},
		session:  &mockSession{},
	}
	f.adapter = NewAdapter(Config{PollInterval: 10 * time.Millisecond, SeekSettleDelay: 20 * time.Millisecond, InitialVolume: 70}, Deps{
		Engine:       f.engine,
		Element:      f.element,
		Catalog:      f.catalog,
		Notifier:     f.notifier,
		MediaSession: f.session,
	})
	t.Cleanup(f.adapter.Stop)
	return f
}

// pump feeds pending engine events to the adapter in order.
func (f *fixture) pump() {
	ctx := context.Background()
	for {
		select {
		case ev := <-f.engine.Events():
			f.adapter.HandleEngineEvent(ctx, ev)
		default:
			return
		}
	}
}

func (f *fixture) elementEvent(typ ElementEventType, state ElementState, source string) {
	f.adapter.HandleElementEvent(context.Background(), ElementEvent{Type: typ, State: state, SourceID: source})
	f.pump()
}

func (f *fixture) stateChange(state ElementState, source string) {
	f.element.setState(state)
	f.elementEvent(ElementStateChanged, state, source)
}

func tracksOf(ids ...string) []track.Track {
	tracks := make([]track.Track, len(ids))
	for i, id := range ids {
		tracks[i] = track.Track{ID: id, Title: "Song " + id}
	}
	return tracks
}

func currentID(e *queue.Engine) string {
	cur, ok := e.CurrentTrack()
	if !ok {
		return ""
	}
	return cur.ID
}

func TestAdapter_TrackChangeLoadsSource(t *testing.T) {
	f := newFixture(t)

	f.engine.PlayPlaylist(tracksOf("a", "b"), "a")
	f.pump()

	assert.Equal(t, []string{"a"}, f.element.loadedIDs())
	assert.True(t, f.adapter.IsChangingTrack())
	assert.Equal(t, Progress{}, f.adapter.Progress())
	assert.Equal(t, 0, f.element.count("play"), "intent echo suppressed while loading")
	require.NotEmpty(t, f.session.meta)
	assert.Equal(t, "a", f.session.meta[len(f.session.meta)-1].ID)
}

func TestAdapter_SameTrackResumeDoesNotReload(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayPlaylist(tracksOf("a", "b"), "a")
	f.pump()
	f.stateChange(ElementPlaying, "a")
	f.engine.TogglePlayPause()
	f.pump()

	f.engine.PlayPlaylist(tracksOf("a", "b"), "a")
	f.pump()

	assert.Equal(t, []string{"a"}, f.element.loadedIDs())
}

func TestAdapter_StaleEngineEventsIgnored(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayPlaylist(tracksOf("a", "b"), "a")
	f.engine.PlayNext()

	f.pump()

	assert.Equal(t, []string{"b"}, f.element.loadedIDs(), "load for superseded track skipped")
}

func TestAdapter_ReadyAppliesVolume(t *testing.T) {
	f := newFixture(t)
	f.adapter.SetVolume(context.Background(), 55)
	f.adapter.SetVolume(context.Background(), 150)

	f.elementEvent(ElementReady, 0, "")

	f.element.mu.Lock()
	defer f.element.mu.Unlock()
	assert.Equal(t, []int{55, 100, 100}, f.element.volumes)
}

func TestAdapter_EndedAdvancesOnce(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayPlaylist(tracksOf("a", "b", "c"), "a")
	f.pump()
	f.stateChange(ElementPlaying, "a")

	f.stateChange(ElementEnded, "a")
	assert.Equal(t, "b", currentID(f.engine))
	assert.Equal(t, []string{"a", "b"}, f.element.loadedIDs())

	// a late duplicate for the finished track must not advance again
	f.stateChange(ElementEnded, "a")
	assert.Equal(t, "b", currentID(f.engine))
	assert.Equal(t, []string{"a", "b"}, f.element.loadedIDs())
	assert.True(t, f.engine.IsPlaying())
}

func TestAdapter_EndedSingleTrackRestarts(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayTrack(track.Track{ID: "a"})
	f.pump()
	f.stateChange(ElementPlaying, "a")
	f.element.reset()

	f.stateChange(ElementEnded, "a")

	assert.Equal(t, "a", currentID(f.engine))
	assert.True(t, f.engine.IsPlaying())
	assert.GreaterOrEqual(t, f.element.count("seek"), 1)
	assert.GreaterOrEqual(t, f.element.count("play"), 1)
	assert.Equal(t, 0, f.element.count("load"))
}

func TestAdapter_PlayingStartsPolling(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayTrack(track.Track{ID: "a"})
	f.pump()
	f.element.setTime(50)

	f.stateChange(ElementPlaying, "a")

	assert.False(t, f.adapter.IsChangingTrack())
	assert.True(t, f.engine.IsPlaying())
	assert.True(t, f.adapter.IsPolling())
	assert.Eventually(t, func() bool {
		return f.adapter.Progress().Percent == 25
	}, time.Second, 5*time.Millisecond)
}

func TestAdapter_PollingStops(t *testing.T) {
	tests := []struct {
		name  string
		state ElementState
	}{
		{name: "buffering", state: ElementBuffering},
		{name: "unstarted", state: ElementUnstarted},
		{name: "paused", state: ElementPaused},
		{name: "ended", state: ElementEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.engine.PlayPlaylist(tracksOf("a", "b"), "a")
			f.pump()
			f.stateChange(ElementPlaying, "a")
			require.True(t, f.adapter.IsPolling())

			f.stateChange(tt.state, "a")

			assert.False(t, f.adapter.IsPolling())
		})
	}
}

func TestAdapter_BufferingKeepsIntent(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayTrack(track.Track{ID: "a"})
	f.pump()
	f.stateChange(ElementPlaying, "a")

	f.stateChange(ElementBuffering, "a")

	assert.True(t, f.engine.IsPlaying())
}

func TestAdapter_PausedDuringTrackChangeIgnored(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayTrack(track.Track{ID: "a"})
	f.pump()

	f.stateChange(ElementPaused, "a")
	assert.True(t, f.engine.IsPlaying(), "guard suppresses pause echo while loading")

	f.stateChange(ElementPlaying, "a")
	f.stateChange(ElementPaused, "a")
	assert.False(t, f.engine.IsPlaying())
}

func TestAdapter_CuedStartsPlaybackWhenIntended(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayTrack(track.Track{ID: "a"})
	f.pump()

	f.stateChange(ElementCued, "a")
	assert.Equal(t, 1, f.element.count("play"))

	f.engine.TogglePlayPause()
	f.pump()
	f.element.reset()
	f.stateChange(ElementCued, "a")
	assert.Equal(t, 0, f.element.count("play"))
}

func TestAdapter_ReconcilesOnlyOnDisagreement(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayTrack(track.Track{ID: "a"})
	f.pump()
	f.stateChange(ElementPlaying, "a")
	f.element.reset()

	f.engine.TogglePlayPause()
	f.pump()
	assert.Equal(t, 1, f.element.count("pause"))

	f.stateChange(ElementPaused, "a")
	f.element.reset()
	f.engine.SetPlaying(false)
	f.pump()
	assert.Equal(t, 0, f.element.count("pause"), "no redundant command")

	f.engine.TogglePlayPause()
	f.pump()
	assert.Equal(t, 1, f.element.count("play"))
}

func TestAdapter_PermanentErrorRemovesFromCatalog(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayPlaylist(tracksOf("a", "b", "c"), "b")
	f.pump()

	f.adapter.HandleElementEvent(context.Background(), ElementEvent{Type: ElementError, Code: ErrorCodeNotEmbeddable, SourceID: "b"})
	f.pump()

	assert.Equal(t, "c", currentID(f.engine))
	assert.Equal(t, []string{"a", "c"}, idsOf(f.engine.Queue()))
	assert.Eventually(t, func() bool {
		ids := f.catalog.removedIDs()
		return len(ids) == 1 && ids[0] == "b"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"b", "c"}, f.element.loadedIDs())
	assert.Equal(t, []notification.Level{notification.LevelWarn}, f.notifier.levels)
}

func TestAdapter_TransientErrorSkipsWithoutCatalogRemoval(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayPlaylist(tracksOf("a", "b"), "a")
	f.pump()

	f.adapter.HandleElementEvent(context.Background(), ElementEvent{Type: ElementError, Code: ErrorCodeHTML5, SourceID: "a"})
	f.pump()

	assert.Equal(t, "b", currentID(f.engine))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.catalog.removedIDs())
	assert.Equal(t, []notification.Level{notification.LevelError}, f.notifier.levels)
}

func TestAdapter_StaleErrorIgnored(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayPlaylist(tracksOf("a", "b"), "b")
	f.pump()

	f.adapter.HandleElementEvent(context.Background(), ElementEvent{Type: ElementError, Code: ErrorCodeNotFound, SourceID: "a"})

	assert.Equal(t, []string{"a", "b"}, idsOf(f.engine.Queue()))
	assert.Empty(t, f.notifier.levels)
}

func TestAdapter_RemovingLastTrackPausesElement(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayTrack(track.Track{ID: "a"})
	f.pump()
	f.stateChange(ElementPlaying, "a")
	f.element.reset()

	f.engine.RemoveSongFromQueue("a")
	f.pump()

	assert.Equal(t, 1, f.element.count("pause"))
	assert.False(t, f.adapter.IsPolling())
	assert.Equal(t, SessionStateNone, f.session.states[len(f.session.states)-1])
}

func TestAdapter_Scrub(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayTrack(track.Track{ID: "a"})
	f.pump()
	f.stateChange(ElementPlaying, "a")
	require.True(t, f.adapter.IsPolling())

	f.adapter.BeginScrub()
	assert.False(t, f.adapter.IsPolling())

	f.adapter.UpdateScrub(10)
	assert.Equal(t, 20.0, f.adapter.Progress().Current)
	f.adapter.UpdateScrub(40)
	assert.Equal(t, 40.0, f.adapter.Progress().Percent)
	assert.Equal(t, 0, f.element.count("seek"), "scrubbing never seeks")

	f.adapter.CommitScrub(context.Background(), 50)
	f.element.mu.Lock()
	assert.Equal(t, []float64{100}, f.element.seeks)
	f.element.mu.Unlock()
	assert.False(t, f.adapter.IsPolling(), "polling waits for the settle delay")

	assert.Eventually(t, f.adapter.IsPolling, time.Second, 5*time.Millisecond)
}

func TestAdapter_ScrubWhilePausedDoesNotResumePolling(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayTrack(track.Track{ID: "a"})
	f.pump()
	f.stateChange(ElementPlaying, "a")
	f.stateChange(ElementPaused, "a")

	f.adapter.BeginScrub()
	f.adapter.CommitScrub(context.Background(), 30)

	time.Sleep(60 * time.Millisecond)
	assert.False(t, f.adapter.IsPolling())
}

func TestAdapter_CommitScrubWithoutDurationResumesPolling(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayTrack(track.Track{ID: "a"})
	f.pump()
	f.stateChange(ElementPlaying, "a")

	f.adapter.BeginScrub()
	require.False(t, f.adapter.IsPolling())
	f.element.mu.Lock()
	f.element.duration = 0
	f.element.mu.Unlock()

	f.adapter.CommitScrub(context.Background(), 50)

	assert.True(t, f.adapter.IsPolling())
	assert.Equal(t, 0, f.element.count("seek"))
}

func drainEngine(engine *queue.Engine, adapter *Adapter) {
	for {
		select {
		case ev := <-engine.Events():
			adapter.HandleEngineEvent(context.Background(), ev)
		default:
			return
		}
	}
}

func TestAdapter_CatchesUpWhenEngineDropsEvents(t *testing.T) {
	engine := queue.NewEngine(queue.Config{EventBuffer: 4, Rand: rand.New(rand.NewSource(1))}, nil)
	element := newMockElement()
	session := &mockSession{}
	adapter := NewAdapter(Config{PollInterval: 10 * time.Millisecond}, Deps{
		Engine:       engine,
		Element:      element,
		MediaSession: session,
	})
	t.Cleanup(adapter.Stop)

	for i := 0; i < 50; i++ {
		engine.PlayTrack(track.Track{ID: fmt.Sprintf("t%02d", i)})
	}
	drainEngine(engine, adapter)

	assert.Equal(t, []string{"t49"}, element.loadedIDs())
	assert.True(t, adapter.IsChangingTrack())

	engine.PlayTrack(track.Track{ID: "next"})
	drainEngine(engine, adapter)
	assert.Equal(t, []string{"t49", "next"}, element.loadedIDs())
}

func TestAdapter_StopIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayTrack(track.Track{ID: "a"})
	f.pump()
	f.stateChange(ElementPlaying, "a")

	f.adapter.Stop()
	f.adapter.Stop()

	assert.False(t, f.adapter.IsPolling())
}

func TestAdapter_MediaActions(t *testing.T) {
	f := newFixture(t)
	f.engine.PlayPlaylist(tracksOf("a", "b", "c"), "a")

	f.adapter.HandleMediaAction(ActionNextTrack)
	assert.Equal(t, "b", currentID(f.engine))

	f.adapter.HandleMediaAction(ActionPreviousTrack)
	assert.Equal(t, "a", currentID(f.engine))

	f.adapter.HandleMediaAction(ActionPause)
	assert.False(t, f.engine.IsPlaying())

	f.adapter.HandleMediaAction(ActionPlay)
	assert.True(t, f.engine.IsPlaying())
}

func TestAdapter_Run(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.adapter.Run(ctx)
	}()

	f.engine.PlayTrack(track.Track{ID: "a"})
	assert.Eventually(t, func() bool {
		return len(f.element.loadedIDs()) == 1
	}, time.Second, 5*time.Millisecond)

	f.element.setState(ElementCued)
	f.element.events <- ElementEvent{Type: ElementStateChanged, State: ElementCued, SourceID: "a"}
	assert.Eventually(t, func() bool {
		return f.element.count("play") == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("adapter did not stop")
	}
}

func TestIsPermanentError(t *testing.T) {
	tests := []struct {
		code     int
		expected bool
	}{
		{code: ErrorCodeInvalidParam, expected: false},
		{code: ErrorCodeHTML5, expected: false},
		{code: ErrorCodeNotFound, expected: true},
		{code: ErrorCodeNotEmbeddable, expected: true},
		{code: ErrorCodeRestricted, expected: true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsPermanentError(tt.code), "code %d", tt.code)
	}
}

func TestParseElementState(t *testing.T) {
	st, ok := ParseElementState("cued")
	assert.True(t, ok)
	assert.Equal(t, ElementCued, st)

	_, ok = ParseElementState("bogus")
	assert.False(t, ok)
}

func idsOf(tracks []track.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
