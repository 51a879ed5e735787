package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"
)

func (s *Server) search(c *gin.Context) {
	if s.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}
	ctx := c.Request.Context()
	query := c.Query("q")

	results, err := s.catalog.Search(ctx, query)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.session.SearchHistory().Add(ctx, query); err != nil {
		zlog.Warn().Msgf("httpapi: failed to record search: error=%v", err)
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) listGenres(c *gin.Context) {
	if s.catalog == nil {
		c.JSON(http.StatusOK, gin.H{"genres": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": s.catalog.Genres()})
}

func (s *Server) browseGenre(c *gin.Context) {
	if s.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}
	results, err := s.catalog.Browse(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) listSearchHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": s.session.SearchHistory().List()})
}

func (s *Server) clearSearchHistory(c *gin.Context) {
	if err := s.session.SearchHistory().Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeSearchHistory(c *gin.Context) {
	if err := s.session.SearchHistory().Remove(c.Request.Context(), c.Query("q")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": s.session.SearchHistory().List()})
}
