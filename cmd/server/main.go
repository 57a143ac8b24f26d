package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"biligate/internal/core/services"
	httphandlers "biligate/internal/handlers/http"
	"biligate/internal/infrastructure/middleware"
	"biligate/internal/infrastructure/monitoring"
	"biligate/internal/infrastructure/proxy"
	repositories "biligate/internal/infrastructure/repositories"
	"biligate/internal/infrastructure/upstream"
	"biligate/pkg/config"
	"biligate/pkg/logger"
	"biligate/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/biligate/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()
	ctxLogger := logger.NewContextLogger(zapLogger)

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "biligate",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	credentialRepo := repoFactory.CreateCredentialRepository()

	// Initialize monitoring
	var metrics *monitoring.Collector
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewCollector()
	}

	// Initialize upstream client and services
	platform := upstream.NewClient(cfg, metrics, log)
	qualityService := services.NewQualityService()
	accessService := services.NewAccessService(cfg, credentialRepo, log)
	mediaService := services.NewMediaService(platform, credentialRepo, qualityService, metrics, log)
	streamProxy := proxy.NewStreamProxy(cfg, metrics, log)

	// Initialize HTTP handlers
	mediaHandler := httphandlers.NewMediaHandler(accessService, mediaService, streamProxy)
	sessionHandler := httphandlers.NewSessionHandler(platform, credentialRepo, cfg, metrics, log)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(ctxLogger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(monitoring.RequestMetricsMiddleware(metrics))
	router.Use(middleware.ErrorHandlerMiddleware(ctxLogger))

	mediaHandler.SetupRoutes(router)
	sessionHandler.SetupRoutes(router)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	// Readiness endpoint checks the credential store backend
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := repoFactory.HealthCheck(ctx); err != nil {
			c.JSON(503, gin.H{
				"status":       "not_ready",
				"timestamp":    time.Now(),
				"dependencies": "unhealthy",
				"error":        err.Error(),
			})
			return
		}

		c.JSON(200, gin.H{
			"status":       "ready",
			"timestamp":    time.Now(),
			"dependencies": "ok",
		})
	})

	// Endpoint index for API consumers
	router.GET("/api/docs", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "biligate",
			"endpoints": gin.H{
				"GET /api/bili/:bvid":             "resolve and redirect; params: key, type=video|audio|raw, quality",
				"GET /api/bili/:bvid/info":        "video metadata; params: key",
				"GET /api/bili/:bvid/streams":     "resolved stream URLs with metadata; params: key, quality",
				"GET /api/bili/:bvid/proxy-video": "proxied video bytes, supports Range; params: key, quality",
				"GET /api/bili/:bvid/proxy-audio": "proxied audio bytes, supports Range; params: key, quality",
				"POST /api/login":                 "body {cookies}; verifies and caches the upstream session",
				"POST /api/logout":                "clears the cached session",
				"GET /api/auth/status":            "whether an elevated session is active",
				"GET /health":                     "liveness",
				"GET /ready":                      "readiness incl. store backend",
			},
		})
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting biligate server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down biligate server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		// Force close if graceful shutdown fails
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}

	log.Info("biligate server stopped")
}
