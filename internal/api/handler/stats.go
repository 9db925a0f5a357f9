package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mojiscan/internal/service"
)

// StatsResponse describes the result cache.
type StatsResponse struct {
	CacheEnabled bool  `json:"cache_enabled"`
	CacheEntries int   `json:"cache_entries"`
	CacheHits    int64 `json:"cache_hits"`
	CacheMisses  int64 `json:"cache_misses"`
}

// StatsHandler reports process-wide cache statistics.
type StatsHandler struct {
	cache *service.ResultCache
}

// NewStatsHandler creates a stats handler. A nil cache reports caching as disabled.
func NewStatsHandler(cache *service.ResultCache) *StatsHandler {
	return &StatsHandler{cache: cache}
}

// GetStats handles GET /api/v1/stats.
func (h *StatsHandler) GetStats(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusOK, StatsResponse{})
		return
	}
	hits, misses := h.cache.Stats()
	c.JSON(http.StatusOK, StatsResponse{
		CacheEnabled: true,
		CacheEntries: h.cache.Len(),
		CacheHits:    hits,
		CacheMisses:  misses,
	})
}
