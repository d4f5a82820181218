package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sitemonitor/models"
	"sitemonitor/services"
	"sitemonitor/store"
)

// Handler serves the report operations and the read-only stats
// endpoint.
type Handler struct {
	log     *zap.Logger
	reports *services.Reports
	store   store.Store
}

// New wires a handler to the report manager and store.
func New(log *zap.Logger, reports *services.Reports, st store.Store) *Handler {
	return &Handler{log: log, reports: reports, store: st}
}

// TriggerReport starts a new report run and returns its id right away.
// Every call is an independent run; there is no idempotency key.
func (h *Handler) TriggerReport(c *gin.Context) {
	reportID, err := h.reports.Trigger(c.Request.Context())
	if err != nil {
		h.log.Error("trigger report failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create report"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"report_id": reportID})
}

// GetReport polls a report job. Running and Failed come back as JSON
// status; a Complete job streams its CSV artifact as a download. An
// unknown id is 404, which is a client error, not a failed report.
func (h *Handler) GetReport(c *gin.Context) {
	reportID := c.Param("report_id")

	job, err := h.reports.Get(c.Request.Context(), reportID)
	if store.ErrNotFound.Has(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	if err != nil {
		h.log.Error("get report failed", zap.String("report_id", reportID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	switch job.State {
	case models.ReportComplete:
		c.FileAttachment(job.FilePath, "report_"+reportID+".csv")
	case models.ReportFailed:
		c.JSON(http.StatusOK, gin.H{"status": string(models.ReportFailed)})
	default:
		c.JSON(http.StatusOK, gin.H{"status": string(models.ReportRunning)})
	}
}
