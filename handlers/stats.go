package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatsOverview returns read-only dataset and report-job counters.
func (h *Handler) StatsOverview(c *gin.Context) {
	stats, err := h.store.Overview(c.Request.Context())
	if err != nil {
		h.log.Error("stats overview failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
