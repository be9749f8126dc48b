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

	"github.com/timmy/leadflow/internal/api"
	"github.com/timmy/leadflow/internal/app"
	"github.com/timmy/leadflow/internal/config"
	"github.com/timmy/leadflow/internal/logger"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	appLogger := app.NewLogger(&cfg.Log, "leadflow-api")
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	ctx := context.Background()
	a, err := app.Build(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize pipeline")
	}
	defer a.Close()

	deps := api.Deps{
		Intake:   a.Intake,
		Lists:    a.Lists,
		Contacts: a.Store,
		Logger:   appLogger,
	}
	if a.SQLDB != nil {
		deps.DB = a.SQLDB
	}
	router := api.SetupRouter(deps, &cfg.Server, &cfg.Ingest)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	// running ingestions are failed as interrupted, not left pending
	if err := a.Intake.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("Background ingestions did not stop in time")
	}

	appLogger.Info("Server exited")
}
