package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"invoice-dashboard-go/internal/models"
)

// RunPollerOnce triggers one poll cycle outside the schedule
func (h *Handlers) RunPollerOnce(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "not_configured",
			Message: "Reply poller is not configured",
			Code:    http.StatusServiceUnavailable,
		})
		return
	}

	go h.scheduler.RunOnce()
	c.JSON(http.StatusAccepted, gin.H{"triggered": true})
}

// PollerStatus reports the reply poller's current state
func (h *Handlers) PollerStatus(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"state": "disabled"})
		return
	}

	status := gin.H{"state": "stopped"}
	if h.scheduler.IsRunning() {
		status["state"] = "running"
		status["next_run"] = h.scheduler.NextRun().Format(time.RFC3339)
	}
	if last := h.scheduler.LastRun(); !last.IsZero() {
		status["last_run"] = last.Format(time.RFC3339)
	}
	if lastErr := h.scheduler.LastError(); lastErr != "" {
		status["last_error"] = lastErr
	}
	c.JSON(http.StatusOK, status)
}
