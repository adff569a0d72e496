package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach-server/internal/config"
	"outreach-server/internal/db"
	"outreach-server/internal/handlers"
	"outreach-server/internal/scheduler"
	"outreach-server/internal/services"
	"outreach-server/pkg/logger"
	"outreach-server/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupServer initializes the store, services, scheduler, and HTTP server
func SetupServer(cfg *config.Config) (*http.Server, *scheduler.Scheduler, error) {
	if cfg == nil {
		return nil, nil, errors.New("configuration is required")
	}

	if cfg.Server.Port <= 0 {
		return nil, nil, errors.New("invalid server port")
	}

	// Initialize database
	database, err := db.NewDatabase(cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize repositories
	credRepo := db.NewCredentialRepository(database.GetDB(), cfg.Encryption.Key)
	leadRepo := db.NewLeadRepository(database.GetDB())
	campaignRepo := db.NewCampaignRepository(database.GetDB())

	// Initialize services
	tokenService := services.NewTokenService(cfg, credRepo)
	leadService := services.NewLeadService(leadRepo, campaignRepo, credRepo)
	campaignService := services.NewCampaignService(campaignRepo, credRepo)
	generator := services.NewGeminiGenerator(cfg)
	dispatcher := newDispatcher(cfg)

	sched := scheduler.New(cfg, leadRepo, credRepo, tokenService, generator, dispatcher)

	// Initialize router
	router := gin.Default()
	setupRoutes(router, cfg, credRepo, tokenService, leadService, campaignService)

	// Create server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, sched, nil
}

// newDispatcher selects the outbound mail path from configuration
func newDispatcher(cfg *config.Config) services.Dispatcher {
	if cfg.Mailer.Mode == "smtp" {
		logger.Info("Using SMTP dispatcher", zap.String("host", cfg.Mailer.SMTP.Host))
		return services.NewSMTPDispatcher(cfg)
	}
	return services.NewGmailDispatcher(cfg)
}

// setupRoutes configures all the HTTP routes
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	credRepo db.CredentialRepository,
	tokenService *services.TokenService,
	leadService *services.LeadService,
	campaignService *services.CampaignService,
) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(tokenService, credRepo, cfg)
	leadHandler := handlers.NewLeadHandler(leadService)
	campaignHandler := handlers.NewCampaignHandler(campaignService, leadService)
	trackHandler := handlers.NewTrackHandler(leadService)

	// Basic health check endpoint (public)
	router.GET("/health", handleHealthCheck)

	// Auth endpoints (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/token", authHandler.Exchange)
		authGroup.GET("/status", authHandler.Status)
	}

	// Lead lifecycle endpoints (public, called by the interactive sender)
	router.POST("/log-send", leadHandler.LogSend)
	router.POST("/follow-up-sent", leadHandler.FollowUpSent)
	router.GET("/followups/pending", leadHandler.PendingFollowUps)
	router.GET("/lead/:id", leadHandler.GetLead)
	router.GET("/analytics", leadHandler.Analytics)
	router.GET("/status", leadHandler.OpenedStatus)

	// Tracking pixel (public, hit by recipients' mail clients)
	router.GET("/track/:id", trackHandler.Track)

	// Protected routes group
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg))

	protected.POST("/campaigns", campaignHandler.Create)
	protected.GET("/campaigns", campaignHandler.List)
	protected.GET("/campaigns/:id", campaignHandler.Get)
	protected.GET("/campaigns/:id/pending", campaignHandler.Pending)
	protected.GET("/campaigns/:id/analytics", campaignHandler.Analytics)
	protected.POST("/campaigns/:id/send-next-followup", campaignHandler.SendNext)
	protected.POST("/clear", leadHandler.ClearAll)
}

// handleHealthCheck handles the health check endpoint
func handleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"version": version,
		"service": "outreach-server",
	})
}

// StartServer starts the HTTP server and the follow-up scheduler, and handles
// graceful shutdown on SIGINT/SIGTERM
func StartServer(srv *http.Server, sched *scheduler.Scheduler) error {
	sched.Start(context.Background())

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	sched.Stop()

	// Create a timeout context for shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}

// StartServerWithContext starts the HTTP server and scheduler with a context
// for shutdown control
func StartServerWithContext(ctx context.Context, srv *http.Server, sched *scheduler.Scheduler) error {
	sched.Start(ctx)

	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down server...")
	sched.Stop()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
