package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"invoice-dashboard-go/internal/config"
	"invoice-dashboard-go/internal/graph"
	"invoice-dashboard-go/internal/models"
	"invoice-dashboard-go/internal/repository"
	"invoice-dashboard-go/internal/scheduler"
	"invoice-dashboard-go/internal/storage"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db        *gorm.DB
	repo      *repository.Repository
	cfg       *config.Config
	graph     *graph.Client
	signer    *storage.BlobSigner
	scheduler *scheduler.Scheduler
}

// NewHandlers creates new HTTP handlers. graph and scheduler may be nil when
// the respective feature is not configured.
func NewHandlers(db *gorm.DB, repo *repository.Repository, cfg *config.Config, g *graph.Client, signer *storage.BlobSigner, s *scheduler.Scheduler) *Handlers {
	return &Handlers{
		db:        db,
		repo:      repo,
		cfg:       cfg,
		graph:     g,
		signer:    signer,
		scheduler: s,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/invoices", h.GetInvoices)
		api.GET("/invoices/export", h.ExportInvoices)
		api.PATCH("/invoices/:id", h.PatchInvoice)
		api.DELETE("/invoices/:id", h.DeleteInvoice)
		api.GET("/invoices/:id/blob-url", h.GetBlobURL)

		api.POST("/invoices/:id/notes", h.CreateNote)
		api.PUT("/invoices/:id/notes/:noteId", h.UpdateNote)
		api.DELETE("/invoices/:id/notes/:noteId", h.DeleteNote)

		api.POST("/email/send", h.SendEmail)

		api.POST("/poller/run-once", h.RunPollerOnce)
		api.GET("/poller/status", h.PollerStatus)
	}
}

// pathID parses a numeric path parameter, replying 400 on garbage
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid " + name,
			Code:    http.StatusBadRequest,
		})
		return 0, false
	}
	return uint(id), true
}
