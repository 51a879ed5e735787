// Package httpapi exposes the player session over JSON HTTP endpoints.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/app/catalog"
	"github.com/osa030/harmony/internal/app/library"
	"github.com/osa030/harmony/internal/app/session"
	"github.com/osa030/harmony/internal/domain/track"
	"github.com/osa030/harmony/internal/infra/youtube"
)

// Searcher finds songs.
type Searcher interface {
	Search(ctx context.Context, text string) ([]track.Track, error)
	Browse(ctx context.Context, genre string) ([]track.Track, error)
	Genres() []catalog.Genre
}

// Deps holds the server collaborators. Catalog and Player are optional.
type Deps struct {
	Session *session.Manager
	Catalog Searcher
	// Player serves the websocket of the player page.
	Player gin.HandlerFunc
}

// Server holds the HTTP handlers.
type Server struct {
	session *session.Manager
	catalog Searcher
	player  gin.HandlerFunc
}

// New creates a new Server.
func New(deps Deps) *Server {
	return &Server{
		session: deps.Session,
		catalog: deps.Catalog,
		player:  deps.Player,
	}
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	if s.player != nil {
		r.GET("/ws/player", s.player)
	}

	api := r.Group("/api")
	api.GET("/state", s.getState)

	player := api.Group("/player")
	player.POST("/play", s.playTrack)
	player.POST("/play-playlist", s.playPlaylist)
	player.POST("/toggle", s.togglePlayPause)
	player.POST("/next", s.playNext)
	player.POST("/prev", s.playPrev)
	player.POST("/shuffle", s.shuffle)
	player.PUT("/volume", s.setVolume)
	player.POST("/seek", s.seek)
	player.POST("/action", s.mediaAction)

	queueGroup := api.Group("/queue")
	queueGroup.GET("", s.getQueue)
	queueGroup.DELETE("", s.clearQueue)
	queueGroup.DELETE("/:trackId", s.removeFromQueue)
	queueGroup.POST("/reorder", s.reorderQueue)

	playlists := api.Group("/playlists")
	playlists.GET("", s.listPlaylists)
	playlists.POST("", s.createPlaylist)
	playlists.GET("/:id", s.getPlaylist)
	playlists.DELETE("/:id", s.deletePlaylist)
	playlists.POST("/:id/tracks", s.addTracks)
	playlists.DELETE("/:id/tracks/:trackId", s.removeTrack)

	api.POST("/likes/toggle", s.toggleLike)
	api.POST("/likes/current", s.likeCurrent)

	api.GET("/search", s.search)
	api.GET("/genres", s.listGenres)
	api.GET("/genres/:name", s.browseGenre)

	api.GET("/search-history", s.listSearchHistory)
	api.DELETE("/search-history", s.clearSearchHistory)
	api.DELETE("/search-history/entry", s.removeSearchHistory)

	api.GET("/zoom", s.getZoom)
	api.PUT("/zoom", s.setZoom)

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zlog.Debug().Msgf("httpapi: request: method=%s path=%s status=%d duration=%v",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// statusOf maps service errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, library.ErrPlaylistNotFound), errors.Is(err, catalog.ErrUnknownGenre):
		return http.StatusNotFound
	case errors.Is(err, library.ErrEmptyName), errors.Is(err, catalog.ErrEmptyQuery), errors.Is(err, session.ErrInvalidZoom):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrReservedPlaylist), errors.Is(err, library.ErrNoCurrentTrack):
		return http.StatusConflict
	case errors.Is(err, youtube.ErrQuotaExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		zlog.Error().Msgf("httpapi: request failed: path=%s error=%v", c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
