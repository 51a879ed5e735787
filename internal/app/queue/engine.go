package queue

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"slices"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/harmony/internal/domain/track"
)

// HistoryLimit is the maximum number of tracks kept in the play history.
const HistoryLimit = 200

const defaultEventBuffer = 256

// Snapshot is a point-in-time copy of the persisted engine state.
type Snapshot struct {
	CurrentTrack *track.Track
	Queue        []track.Track
	History      []track.Track
}

// Persister receives a snapshot after every mutation.
// Implementations must return immediately.
type Persister interface {
	Persist(s Snapshot)
}

// Config holds engine configuration.
type Config struct {
	EventBuffer int        // Event channel capacity (default 256)
	Rand        *rand.Rand // Random source for shuffling (nil: crypto-seeded)
}

// Engine owns the current track, the play queue, the history and the playback intent.
// Every public operation runs to completion under the engine lock; invalid arguments are no-ops.
type Engine struct {
	mu sync.RWMutex

	queue   []track.Track
	history []track.Track
	current *track.Track
	playing bool

	// generation increments on every current track change
	generation uint64

	rng       *rand.Rand
	persister Persister

	eventCh chan Event
	closed  bool
}

// NewEngine creates a new engine. persister may be nil.
func NewEngine(cfg Config, persister Persister) *Engine {
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	rng := cfg.Rand
	if rng == nil {
		rng = newCryptoSeededRand()
	}
	return &Engine{
		queue:     make([]track.Track, 0),
		history:   make([]track.Track, 0),
		rng:       rng,
		persister: persister,
		eventCh:   make(chan Event, buffer),
	}
}

// Events returns the event channel.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// Restore replaces the engine state with a persisted snapshot.
// Playback intent is reset to paused and the restored track is announced as a track change.
func (e *Engine) Restore(s Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queue = slices.Clone(s.Queue)
	if e.queue == nil {
		e.queue = make([]track.Track, 0)
	}
	e.history = make([]track.Track, 0, len(s.History))
	for _, t := range s.History {
		if track.IndexOf(e.history, t.ID) < 0 {
			e.history = append(e.history, t)
		}
	}
	if len(e.history) > HistoryLimit {
		e.history = e.history[:HistoryLimit]
	}
	e.playing = false
	e.current = nil
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		e.current = &t
	}
	e.generation++

	zlog.Info().Msgf("queue: restored: current=%s queue=%d history=%d", e.currentIDLocked(), len(e.queue), len(e.history))
	e.sendEventLocked(EventQueueChanged)
	e.sendEventLocked(EventTrackChanged)
}

// PlayTrack replaces the queue with the single track and starts playing it.
func (e *Engine) PlayTrack(t track.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queue = []track.Track{t}
	e.sendEventLocked(EventQueueChanged)
	e.changeTrackLocked(t)
	e.setPlayingLocked(true)
	e.persistLocked()
}

// PlayPlaylist seeds the queue from tracks and starts playback.
// With a startingTrackID the order is kept and playback starts at that track (first track if absent).
// With an empty startingTrackID the queue is shuffled and playback starts at its head.
// If the resolved track is already current, only the intent is set to playing.
func (e *Engine) PlayPlaylist(tracks []track.Track, startingTrackID string) {
	if len(tracks) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var start track.Track
	if startingTrackID != "" {
		e.queue = slices.Clone(tracks)
		idx := track.IndexOf(e.queue, startingTrackID)
		if idx < 0 {
			idx = 0
		}
		start = e.queue[idx]
	} else {
		e.queue = Shuffle(tracks, e.rng)
		start = e.queue[0]
	}
	e.sendEventLocked(EventQueueChanged)

	if e.current == nil || e.current.ID != start.ID {
		e.changeTrackLocked(start)
	}
	e.setPlayingLocked(true)
	e.persistLocked()
}

// TogglePlayPause flips the playback intent. No-op without a current track.
func (e *Engine) TogglePlayPause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return
	}
	e.setPlayingLocked(!e.playing)
}

// SetPlaying sets the playback intent. No-op without a current track.
func (e *Engine) SetPlaying(playing bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return
	}
	e.setPlayingLocked(playing)
}

// PlayNext advances to the next queue entry, wrapping around.
func (e *Engine) PlayNext() {
	e.step(1)
}

// PlayPrev moves to the previous queue entry, wrapping around.
func (e *Engine) PlayPrev() {
	e.step(-1)
}

func (e *Engine) step(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || len(e.queue) == 0 {
		return
	}

	// single entry: restart it
	if len(e.queue) == 1 {
		t := e.queue[0]
		if t.ID == e.current.ID {
			e.recordHistoryLocked(t)
			e.current = &t
			e.sendEventLocked(EventTrackRestarted)
		} else {
			e.changeTrackLocked(t)
		}
		e.setPlayingLocked(true)
		e.persistLocked()
		return
	}

	idx := track.IndexOf(e.queue, e.current.ID)
	if idx < 0 {
		return
	}
	n := len(e.queue)
	next := ((idx+delta)%n + n) % n

	e.changeTrackLocked(e.queue[next])
	e.setPlayingLocked(true)
	e.persistLocked()
}

// ShufflePlaylist randomizes the queue.
// With a current track it stays at the head and keeps playing; only the other entries move.
func (e *Engine) ShufflePlaylist() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) <= 1 {
		return
	}

	if e.current == nil {
		e.queue = Shuffle(e.queue, e.rng)
		e.sendEventLocked(EventQueueChanged)
		e.changeTrackLocked(e.queue[0])
		e.setPlayingLocked(true)
		e.persistLocked()
		return
	}

	others := track.Without(e.queue, e.current.ID)
	e.queue = append([]track.Track{*e.current}, Shuffle(others, e.rng)...)
	e.sendEventLocked(EventQueueChanged)
	e.setPlayingLocked(true)
	e.persistLocked()
}

// ClearQueue drops every queued track except the current one.
func (e *Engine) ClearQueue() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil {
		e.queue = []track.Track{*e.current}
	} else {
		e.queue = make([]track.Track, 0)
	}
	e.sendEventLocked(EventQueueCleared)
	e.persistLocked()
}

// RemoveSongFromQueue removes trackID from the queue.
// Removing the current track continues with the entry at (old index mod new length).
func (e *Engine) RemoveSongFromQueue(trackID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := track.IndexOf(e.queue, trackID)
	if idx < 0 {
		return
	}

	e.queue = track.Without(e.queue, trackID)
	e.sendEventLocked(EventQueueChanged)

	if e.current != nil && e.current.ID == trackID {
		e.replaceCurrentLocked(idx)
	}
	e.persistLocked()
}

// HandleTrackError drops an unplayable track from the queue and the history.
// If it was current, a replacement is chosen like RemoveSongFromQueue; without one playback stops.
func (e *Engine) HandleTrackError(trackID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := track.IndexOf(e.queue, trackID)
	if idx >= 0 {
		e.queue = track.Without(e.queue, trackID)
		e.sendEventLocked(EventQueueChanged)
	}
	if track.IndexOf(e.history, trackID) >= 0 {
		e.history = track.Without(e.history, trackID)
		e.sendEventLocked(EventHistoryChanged)
	}

	if e.current != nil && e.current.ID == trackID {
		zlog.Warn().Msgf("queue: current track failed: id=%s title=%s", e.current.ID, e.current.Title)
		e.replaceCurrentLocked(idx)
	}
	e.persistLocked()
}

// ReorderPlaylist moves the queue entry at oldIndex to newIndex.
func (e *Engine) ReorderPlaylist(oldIndex, newIndex int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.queue)
	if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n || oldIndex == newIndex {
		return
	}

	moved := e.queue[oldIndex]
	q := slices.Delete(slices.Clone(e.queue), oldIndex, oldIndex+1)
	e.queue = slices.Insert(q, newIndex, moved)
	e.sendEventLocked(EventQueueChanged)
	e.persistLocked()
}

// CurrentTrack returns a copy of the current track.
func (e *Engine) CurrentTrack() (*track.Track, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.current == nil {
		return nil, false
	}
	t := *e.current
	return &t, true
}

// Queue returns a copy of the queue.
func (e *Engine) Queue() []track.Track {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.queue)
}

// History returns a copy of the history, most recent first.
func (e *Engine) History() []track.Track {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.history)
}

// IsPlaying returns the playback intent.
func (e *Engine) IsPlaying() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.playing
}

// State returns the current engine state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked()
}

// Generation returns the track change counter.
func (e *Engine) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

// Snapshot returns a copy of the persisted state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

// Close closes the event channel. Further operations still mutate state but emit nothing.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	close(e.eventCh)
}

// changeTrackLocked makes t current and records it in history.
// A track change event is emitted only when the identity changes.
func (e *Engine) changeTrackLocked(t track.Track) {
	e.recordHistoryLocked(t)

	if e.current != nil && e.current.ID == t.ID {
		e.current = &t
		e.sendEventLocked(EventHistoryChanged)
		return
	}

	e.current = &t
	e.generation++
	zlog.Debug().Msgf("queue: track changed: id=%s title=%s generation=%d", t.ID, t.Title, e.generation)
	e.sendEventLocked(EventTrackChanged)
}

// replaceCurrentLocked picks the entry at (removedIndex mod len(queue)) as the new current track.
// A negative removedIndex or an empty queue clears the current track and pauses.
func (e *Engine) replaceCurrentLocked(removedIndex int) {
	if len(e.queue) == 0 || removedIndex < 0 {
		e.setPlayingLocked(false)
		e.current = nil
		e.generation++
		zlog.Debug().Msgf("queue: current track cleared: generation=%d", e.generation)
		e.sendEventLocked(EventTrackChanged)
		return
	}

	e.changeTrackLocked(e.queue[removedIndex%len(e.queue)])
	e.setPlayingLocked(true)
}

func (e *Engine) setPlayingLocked(playing bool) {
	if e.playing == playing {
		return
	}
	e.playing = playing
	e.sendEventLocked(EventIntentChanged)
}

func (e *Engine) recordHistoryLocked(t track.Track) {
	rest := lo.Filter(e.history, func(h track.Track, _ int) bool {
		return h.ID != t.ID
	})
	e.history = append([]track.Track{t}, rest...)
	if len(e.history) > HistoryLimit {
		e.history = e.history[:HistoryLimit]
	}
}

func (e *Engine) stateLocked() State {
	switch {
	case e.current == nil:
		return StateIdle
	case e.playing:
		return StatePlaying
	default:
		return StatePaused
	}
}

func (e *Engine) currentIDLocked() string {
	if e.current == nil {
		return ""
	}
	return e.current.ID
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		Queue:   slices.Clone(e.queue),
		History: slices.Clone(e.history),
	}
	if e.current != nil {
		t := *e.current
		s.CurrentTrack = &t
	}
	return s
}

func (e *Engine) persistLocked() {
	if e.persister == nil {
		return
	}
	e.persister.Persist(e.snapshotLocked())
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (e *Engine) sendEventLocked(typ EventType) {
	if e.closed {
		return
	}
	ev := Event{
		Type:       typ,
		Playing:    e.playing,
		Generation: e.generation,
	}
	if e.current != nil {
		t := *e.current
		ev.Track = &t
	}

	select {
	case e.eventCh <- ev:
	default:
		zlog.Warn().Msgf("queue: event channel full, dropping event: type=%s", typ)
	}
}

func newCryptoSeededRand() *rand.Rand {
	var seed int64
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	} else {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
