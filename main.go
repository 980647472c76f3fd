package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrmenu/config"
	"qrmenu/database"
	"qrmenu/events"
	"qrmenu/route"
	"qrmenu/utils"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := utils.NewLogger(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger.Info("Running in debug mode")
	}

	if err := os.MkdirAll(cfg.Server.UploadDir, 0755); err != nil {
		logger.Fatal("Failed to create uploads directory", zap.Error(err))
	}

	ctx := context.Background()
	store, err := database.InitDatabase(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialise database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}

	broker, err := newBroker(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialise event broker", zap.String("driver", cfg.Events.Driver), zap.Error(err))
	}

	router := route.NewRouter(route.Dependencies{
		Config: cfg,
		Store:  store,
		Broker: broker,
		Tokens: utils.NewTokenManager(cfg.Auth),
		Log:    logger,
	})
	logger.Info("Routes configured successfully")

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-srvErr:
		logger.Error("Server error", zap.Error(err))
	}

	// Closing the broker first ends open event streams so Shutdown can drain.
	if err := broker.Close(); err != nil {
		logger.Warn("Failed to close event broker", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func newBroker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (events.Broker, error) {
	if cfg.Events.Driver != "redis" {
		logger.Info("Using in-process event broker")
		return events.NewLocalBroker(), nil
	}

	broker := events.NewRedisBroker(cfg.Redis, logger)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := broker.Ping(pingCtx); err != nil {
		_ = broker.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	return broker, nil
}
