package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"invoice-dashboard-go/internal/models"
)

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Poller:    make(map[string]string),
	}

	// Ping the underlying connection; gorm's Raw builder does not run the
	// statement until a row is read, so it would report ok on a dead pool.
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	if h.scheduler == nil {
		response.Poller["state"] = "disabled"
	} else if h.scheduler.IsRunning() {
		response.Poller["state"] = "running"
		response.Poller["next_run"] = h.scheduler.NextRun().Format(time.RFC3339)
		if last := h.scheduler.LastRun(); !last.IsZero() {
			response.Poller["last_run"] = last.Format(time.RFC3339)
		}
	} else {
		response.Poller["state"] = "stopped"
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
