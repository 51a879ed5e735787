// Package library manages the user's named playlists and the reserved liked songs playlist.
package library

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/harmony/internal/app/notification"
	"github.com/osa030/harmony/internal/domain/playlist"
	"github.com/osa030/harmony/internal/domain/track"
	"github.com/osa030/harmony/internal/infra/store"
)

var (
	// ErrPlaylistNotFound is returned when the playlist does not exist.
	ErrPlaylistNotFound = errors.New("playlist not found")
	// ErrReservedPlaylist is returned when deleting the liked songs playlist.
	ErrReservedPlaylist = errors.New("liked songs playlist cannot be deleted")
	// ErrEmptyName is returned when creating a playlist without a name.
	ErrEmptyName = errors.New("playlist name is required")
	// ErrNoCurrentTrack is returned by LikeCurrent when nothing is loaded.
	ErrNoCurrentTrack = errors.New("no current track")
)

// CurrentTrackSource exposes the track currently in play.
type CurrentTrackSource interface {
	CurrentTrack() (*track.Track, bool)
}

// Catalog removes songs from the global catalog.
type Catalog interface {
	Remove(ctx context.Context, id string) error
}

// Notifier shows user-visible notices.
type Notifier interface {
	Notify(level notification.Level, title, message string)
}

// Deps holds the collaborators of the service. Current, Catalog and Notifier are optional.
type Deps struct {
	Store    store.KV
	Current  CurrentTrackSource
	Catalog  Catalog
	Notifier Notifier
}

// Service is the playlist membership service.
type Service struct {
	mu        sync.RWMutex
	playlists []playlist.Playlist
	deps      Deps
}

// New creates an empty service. Call Init to load persisted playlists.
func New(deps Deps) *Service {
	return &Service{
		playlists: []playlist.Playlist{playlist.NewLikedSongs()},
		deps:      deps,
	}
}

// Init loads playlists from the store and seeds the liked songs playlist when missing.
// A read failure keeps the empty liked songs playlist in memory and is returned;
// the stored document is left untouched. A failed seed write is only reported.
func (s *Service) Init(ctx context.Context) error {
	var loaded []playlist.Playlist
	found, err := s.deps.Store.Get(ctx, store.KeyPlaylists, &loaded)
	if err != nil {
		return errors.Wrap(err, "failed to load playlists")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.playlists = loaded
	seeded := false
	if !lo.ContainsBy(s.playlists, func(p playlist.Playlist) bool { return p.IsLikedSongs() }) {
		s.playlists = append([]playlist.Playlist{playlist.NewLikedSongs()}, s.playlists...)
		seeded = true
	}
	for i := range s.playlists {
		if s.playlists[i].Tracks == nil {
			s.playlists[i].Tracks = []track.Track{}
		}
	}

	zlog.Info().Msgf("library: loaded: playlists=%d, found=%t", len(s.playlists), found)
	if seeded {
		s.persistLocked(ctx)
	}
	return nil
}

func (s *Service) notify(level notification.Level, title, message string) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Notify(level, title, message)
	}
}

func (s *Service) indexLocked(id string) int {
	return lo.IndexOf(lo.Map(s.playlists, func(p playlist.Playlist, _ int) string { return p.ID }), id)
}

// persistLocked writes every playlist. A failed write keeps the in-memory
// state and shows a notice; callers do not roll back.
func (s *Service) persistLocked(ctx context.Context) {
	if err := s.deps.Store.Set(ctx, store.KeyPlaylists, s.playlists); err != nil {
		zlog.Error().Err(err).Msg("library: failed to save playlists")
		s.notify(notification.LevelWarn, "Could not save", "Your playlist changes could not be saved")
	}
}

func clone(p playlist.Playlist) playlist.Playlist {
	p.Tracks = append([]track.Track{}, p.Tracks...)
	return p
}

// List returns a copy of every playlist, liked songs included.
func (s *Service) List() []playlist.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Map(s.playlists, func(p playlist.Playlist, _ int) playlist.Playlist { return clone(p) })
}

// Get returns a copy of one playlist.
func (s *Service) Get(id string) (playlist.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return playlist.Playlist{}, false
	}
	return clone(s.playlists[idx]), true
}

// Create adds a new empty playlist.
func (s *Service) Create(ctx context.Context, name, description string) (playlist.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return playlist.Playlist{}, ErrEmptyName
	}

	p := playlist.Playlist{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Tracks:      []track.Track{},
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists = append(s.playlists, p)
	zlog.Info().Msgf("library: playlist created: id=%s, name=%s", p.ID, p.Name)
	s.persistLocked(ctx)
	return clone(p), nil
}

// AddTrack appends a track to a playlist. Adding a track that is already
// present is a no-op that only shows a notice; added reports whether it was appended.
func (s *Service) AddTrack(ctx context.Context, playlistID string, t track.Track) (added bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(playlistID)
	if idx < 0 {
		return false, errors.Wrapf(ErrPlaylistNotFound, "id=%s", playlistID)
	}
	p := &s.playlists[idx]
	if p.Contains(t.ID) {
		s.notify(notification.LevelInfo, "Already added", t.Title+" is already in "+p.Name)
		return false, nil
	}

	p.Tracks = append(p.Tracks, t)
	zlog.Info().Msgf("library: track added: playlist=%s, track=%s", p.ID, t.ID)
	s.persistLocked(ctx)
	return true, nil
}

// AddTracks appends every track not yet present, with a single write.
// It returns the number of tracks appended.
func (s *Service) AddTracks(ctx context.Context, playlistID string, tracks []track.Track) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(playlistID)
	if idx < 0 {
		return 0, errors.Wrapf(ErrPlaylistNotFound, "id=%s", playlistID)
	}
	p := &s.playlists[idx]

	fresh := lo.UniqBy(lo.Filter(tracks, func(t track.Track, _ int) bool {
		return !p.Contains(t.ID)
	}), func(t track.Track) string { return t.ID })
	if len(fresh) == 0 {
		s.notify(notification.LevelInfo, "Already added", "All tracks are already in "+p.Name)
		return 0, nil
	}

	p.Tracks = append(p.Tracks, fresh...)
	zlog.Info().Msgf("library: tracks added: playlist=%s, added=%d, skipped=%d", p.ID, len(fresh), len(tracks)-len(fresh))
	s.persistLocked(ctx)
	return len(fresh), nil
}

// RemoveTrack removes a track from a playlist. Absent tracks are ignored.
func (s *Service) RemoveTrack(ctx context.Context, playlistID, trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(playlistID)
	if idx < 0 {
		return errors.Wrapf(ErrPlaylistNotFound, "id=%s", playlistID)
	}
	p := &s.playlists[idx]
	if !p.Contains(trackID) {
		return nil
	}
	p.Tracks = track.Without(p.Tracks, trackID)
	zlog.Info().Msgf("library: track removed: playlist=%s, track=%s", p.ID, trackID)
	s.persistLocked(ctx)
	return nil
}

// Delete removes a playlist. The liked songs playlist cannot be deleted.
func (s *Service) Delete(ctx context.Context, playlistID string) error {
	if playlistID == playlist.LikedSongsID {
		return ErrReservedPlaylist
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(playlistID)
	if idx < 0 {
		return errors.Wrapf(ErrPlaylistNotFound, "id=%s", playlistID)
	}
	s.playlists = append(s.playlists[:idx:idx], s.playlists[idx+1:]...)
	zlog.Info().Msgf("library: playlist deleted: id=%s", playlistID)
	s.persistLocked(ctx)
	return nil
}

// ToggleLike adds the track to liked songs, or removes it when already liked.
// It returns the new liked state.
func (s *Service) ToggleLike(ctx context.Context, t track.Track) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(playlist.LikedSongsID)
	if idx < 0 {
		s.playlists = append([]playlist.Playlist{playlist.NewLikedSongs()}, s.playlists...)
		idx = 0
	}
	liked := &s.playlists[idx]

	nowLiked := !liked.Contains(t.ID)
	if nowLiked {
		liked.Tracks = append(liked.Tracks, t)
	} else {
		liked.Tracks = track.Without(liked.Tracks, t.ID)
	}
	zlog.Info().Msgf("library: like toggled: track=%s, liked=%t", t.ID, nowLiked)
	s.persistLocked(ctx)
	return nowLiked, nil
}

// IsLiked reports whether the track is in liked songs.
func (s *Service) IsLiked(trackID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(playlist.LikedSongsID)
	return idx >= 0 && s.playlists[idx].Contains(trackID)
}

// LikeCurrent toggles the like state of the track currently in play.
func (s *Service) LikeCurrent(ctx context.Context) (bool, error) {
	if s.deps.Current == nil {
		return false, ErrNoCurrentTrack
	}
	cur, ok := s.deps.Current.CurrentTrack()
	if !ok {
		return false, ErrNoCurrentTrack
	}
	return s.ToggleLike(ctx, *cur)
}

// IsCurrentLiked reports whether the track currently in play is liked.
func (s *Service) IsCurrentLiked() bool {
	if s.deps.Current == nil {
		return false
	}
	cur, ok := s.deps.Current.CurrentTrack()
	return ok && s.IsLiked(cur.ID)
}

// RemoveTrackEverywhere drops an unplayable track from every playlist and
// from the global catalog.
func (s *Service) RemoveTrackEverywhere(ctx context.Context, trackID string) error {
	s.mu.Lock()
	touched := 0
	for i := range s.playlists {
		if s.playlists[i].Contains(trackID) {
			s.playlists[i].Tracks = track.Without(s.playlists[i].Tracks, trackID)
			touched++
		}
	}
	if touched > 0 {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	zlog.Info().Msgf("library: track removed everywhere: track=%s, playlists=%d", trackID, touched)

	if s.deps.Catalog != nil {
		if err := s.deps.Catalog.Remove(ctx, trackID); err != nil {
			return errors.Wrapf(err, "failed to remove track %s from catalog", trackID)
		}
	}
	return nil
}
