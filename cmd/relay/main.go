package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/rtc-relay/config"
	"github.com/mossy-p/rtc-relay/internal/handlers"
	"github.com/mossy-p/rtc-relay/internal/middleware"
	"github.com/mossy-p/rtc-relay/internal/redis"
	"github.com/mossy-p/rtc-relay/internal/session"
	"github.com/mossy-p/rtc-relay/internal/upstream"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Server.Environment)
	slog.SetDefault(logger)

	// Optional Redis session mirror
	var mirror *session.Mirror
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		mirror = session.NewMirror(client, cfg.Redis.SessionTTL)
		logger.Info("Redis session mirror enabled", "addr", cfg.Redis.Addr)
	}

	registry := session.NewRegistry(mirror, logger)
	tracker := upstream.NewTracker(
		cfg.Upstream.MaxReconnectAttempts,
		cfg.Upstream.InitialBackoff,
		cfg.Upstream.MaxBackoff,
	)
	manager := upstream.NewManager(cfg.Upstream, registry, tracker, logger)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(handlers.OriginFilter(cfg.Server.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Control-plane socket and operator visibility
	router.GET("/rtc", middleware.BearerAuth(cfg.Server.AuthSecret), handlers.HandleUpstream(manager, logger))
	router.GET("/status", handlers.Status(registry, tracker))

	apiGroup := router.Group("/api", middleware.BearerAuth(cfg.Server.AuthSecret))
	{
		apiGroup.GET("/sessions", handlers.ListSessions(registry))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting signaling relay", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := manager.Shutdown(ctx); err != nil {
		logger.Warn("control connection did not close cleanly", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}
}

func newLogger(environment string) *slog.Logger {
	if environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
