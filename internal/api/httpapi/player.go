package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osa030/harmony/internal/app/notification"
	"github.com/osa030/harmony/internal/app/playback"
	"github.com/osa030/harmony/internal/domain/track"
)

type trackRequest struct {
	Track track.Track `json:"track"`
}

func bindTrack(c *gin.Context) (track.Track, bool) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return track.Track{}, false
	}
	if req.Track.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "track.id is required"})
		return track.Track{}, false
	}
	return req.Track, true
}

type playPlaylistRequest struct {
	PlaylistID    string        `json:"playlistId"`
	Tracks        []track.Track `json:"tracks"`
	StartingTrack string        `json:"startingTrackId"`
}

type volumeRequest struct {
	Volume *int `json:"volume" binding:"required"`
}

type seekRequest struct {
	Percent *float64 `json:"percent" binding:"required,gte=0,lte=100"`
}

type actionRequest struct {
	Action playback.MediaAction `json:"action" binding:"required,oneof=play pause previoustrack nexttrack"`
}

type reorderRequest struct {
	OldIndex *int `json:"oldIndex" binding:"required"`
	NewIndex *int `json:"newIndex" binding:"required"`
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.View())
}

func (s *Server) playTrack(c *gin.Context) {
	t, ok := bindTrack(c)
	if !ok {
		return
	}
	s.session.Engine().PlayTrack(t)
	c.JSON(http.StatusOK, s.session.View())
}

func (s *Server) playPlaylist(c *gin.Context) {
	var req playPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tracks := req.Tracks
	if req.PlaylistID != "" {
		p, ok := s.session.Library().Get(req.PlaylistID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "playlist not found"})
			return
		}
		tracks = p.Tracks
	}
	s.session.Engine().PlayPlaylist(tracks, req.StartingTrack)
	c.JSON(http.StatusOK, s.session.View())
}

func (s *Server) togglePlayPause(c *gin.Context) {
	s.session.Engine().TogglePlayPause()
	c.JSON(http.StatusOK, s.session.View())
}

func (s *Server) playNext(c *gin.Context) {
	s.session.Engine().PlayNext()
	c.JSON(http.StatusOK, s.session.View())
}

func (s *Server) playPrev(c *gin.Context) {
	s.session.Engine().PlayPrev()
	c.JSON(http.StatusOK, s.session.View())
}

func (s *Server) shuffle(c *gin.Context) {
	s.session.Engine().ShufflePlaylist()
	c.JSON(http.StatusOK, s.session.View())
}

func (s *Server) setVolume(c *gin.Context) {
	var req volumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.session.Adapter().SetVolume(c.Request.Context(), *req.Volume)
	c.JSON(http.StatusOK, gin.H{"volume": s.session.Adapter().Volume()})
}

func (s *Server) seek(c *gin.Context) {
	var req seekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	adapter := s.session.Adapter()
	adapter.BeginScrub()
	adapter.CommitScrub(c.Request.Context(), *req.Percent)
	c.JSON(http.StatusOK, gin.H{"progress": adapter.Progress()})
}

func (s *Server) mediaAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.session.Adapter().HandleMediaAction(req.Action)
	c.JSON(http.StatusOK, s.session.View())
}

func (s *Server) getQueue(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queue": s.session.Engine().Queue()})
}

func (s *Server) clearQueue(c *gin.Context) {
	s.session.Engine().ClearQueue()
	s.session.Notifications().Notify(notification.LevelInfo, "Queue cleared", "")
	c.JSON(http.StatusOK, s.session.View())
}

func (s *Server) removeFromQueue(c *gin.Context) {
	engine := s.session.Engine()
	id := c.Param("trackId")
	queued := track.IndexOf(engine.Queue(), id) >= 0
	engine.RemoveSongFromQueue(id)
	if queued {
		s.session.Notifications().Notify(notification.LevelInfo, "Song removed from queue", "")
	}
	c.JSON(http.StatusOK, s.session.View())
}

func (s *Server) reorderQueue(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.session.Engine().ReorderPlaylist(*req.OldIndex, *req.NewIndex)
	c.JSON(http.StatusOK, gin.H{"queue": s.session.Engine().Queue()})
}

func (s *Server) getZoom(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"zoom": s.session.Zoom()})
}

func (s *Server) setZoom(c *gin.Context) {
	var req struct {
		Zoom *float64 `json:"zoom" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.session.SetZoom(c.Request.Context(), *req.Zoom); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zoom": s.session.Zoom()})
}
