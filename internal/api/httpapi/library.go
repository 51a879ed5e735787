package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osa030/harmony/internal/domain/track"
)

type createPlaylistRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type addTracksRequest struct {
	Track  *track.Track  `json:"track"`
	Tracks []track.Track `json:"tracks"`
}

func (s *Server) listPlaylists(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"playlists": s.session.Library().List()})
}

func (s *Server) getPlaylist(c *gin.Context) {
	p, ok := s.session.Library().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "playlist not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) createPlaylist(c *gin.Context) {
	var req createPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := s.session.Library().Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) deletePlaylist(c *gin.Context) {
	if err := s.session.Library().Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addTracks(c *gin.Context) {
	var req addTracksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	lib := s.session.Library()
	ctx := c.Request.Context()
	id := c.Param("id")

	if req.Track != nil {
		added, err := lib.AddTrack(ctx, id, *req.Track)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"added": boolToInt(added)})
		return
	}
	if len(req.Tracks) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "track or tracks is required"})
		return
	}
	added, err := lib.AddTracks(ctx, id, req.Tracks)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func (s *Server) removeTrack(c *gin.Context) {
	if err := s.session.Library().RemoveTrack(c.Request.Context(), c.Param("id"), c.Param("trackId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleLike(c *gin.Context) {
	t, ok := bindTrack(c)
	if !ok {
		return
	}
	liked, err := s.session.Library().ToggleLike(c.Request.Context(), t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

func (s *Server) likeCurrent(c *gin.Context) {
	liked, err := s.session.Library().LikeCurrent(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
