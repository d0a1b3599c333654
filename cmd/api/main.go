package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"invoice-dashboard-go/internal/config"
	"invoice-dashboard-go/internal/database"
	"invoice-dashboard-go/internal/graph"
	"invoice-dashboard-go/internal/handlers"
	"invoice-dashboard-go/internal/metrics"
	"invoice-dashboard-go/internal/poller"
	"invoice-dashboard-go/internal/repository"
	"invoice-dashboard-go/internal/scheduler"
	"invoice-dashboard-go/internal/server"
	"invoice-dashboard-go/internal/storage"
)

func main() {
	// Configure logging
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Invoice Dashboard Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	// Initialize database (runs the idempotent schema setup, including the
	// poller's cursor table and the note message_id unique index)
	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	repo := repository.New(db)
	m := metrics.NewMetrics()

	// Initialize blob signer for invoice documents
	signer, err := storage.NewBlobSigner(cfg.Storage)
	if err != nil {
		logrus.Fatalf("Failed to initialize blob signer: %v", err)
	}
	if !signer.CanSign() {
		logrus.Warn("Storage credentials missing: serving unsigned blob URLs")
	}

	// Initialize the Graph client and the reply poller. Missing any of the
	// mailbox or the credential triple means the poller stays disabled; this
	// is an explicit startup decision, not a per-cycle failure.
	var graphClient *graph.Client
	var sched *scheduler.Scheduler
	if cfg.Graph.TenantID != "" && cfg.Graph.ClientID != "" && cfg.Graph.ClientSecret != "" {
		graphClient = graph.NewClient(cfg.Graph)
	}
	if cfg.PollerEnabled() {
		p := poller.New(cfg.Mailbox(), graphClient, repo, m)
		sched = scheduler.NewScheduler(cfg.Poller.IntervalSeconds, p)
		if err := sched.Start(); err != nil {
			logrus.Fatalf("Failed to start reply poller: %v", err)
		}
	} else {
		logrus.Info("Reply poller disabled: missing Graph config or mailbox")
	}

	// Initialize HTTP handlers and server
	h := handlers.NewHandlers(db, repo, cfg, graphClient, signer, sched)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(); err != nil {
			logrus.Errorf("Failed to stop reply poller: %v", err)
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Server stopped gracefully")
}
