// Package app wires configuration into the intake pipeline shared by the API server
// and the ingest CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/timmy/leadflow/internal/config"
	"github.com/timmy/leadflow/internal/logger"
	"github.com/timmy/leadflow/internal/normalizer"
	"github.com/timmy/leadflow/internal/normalizer/local"
	"github.com/timmy/leadflow/internal/normalizer/remote"
	"github.com/timmy/leadflow/internal/repository"
	"github.com/timmy/leadflow/internal/service"
	"github.com/timmy/leadflow/internal/storage"
	"github.com/timmy/leadflow/internal/store"
	"github.com/timmy/leadflow/internal/storeclient"
)

// App holds the wired components.
type App struct {
	DB      *gorm.DB // nil when neither the store nor the job registry uses SQL
	SQLDB   *sql.DB
	Store   store.Store
	Lists   *service.ListService
	Jobs    *service.JobRegistry
	Intake  *service.IntakeService
	Archive *storage.UploadArchive // nil when storage is disabled
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg *config.LogConfig, serviceName string) *logger.Logger {
	logCfg := logger.DefaultConfig()
	logCfg.ServiceName = serviceName
	if cfg != nil {
		if cfg.Level != "" {
			logCfg.Level = cfg.Level
		}
		if cfg.Format != "" {
			logCfg.Format = cfg.Format
		}
		logCfg.File = cfg.File
	}
	return logger.New(logCfg.ApplyEnv())
}

// Build opens the database, picks the store and normalizer named by cfg, prepares
// the upload archive and recovers jobs left pending by a previous process.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	if cfg.Store.Driver == "database" || cfg.Jobs.Persist {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
		}
		a.DB, a.SQLDB = db, sqlDB
	}

	switch cfg.Store.Driver {
	case "http":
		a.Store = storeclient.New(&cfg.Store.Endpoint)
		logger.Info("Using remote store at %s", cfg.Store.Endpoint.BaseURL)
	default:
		a.Store = repository.NewSQLStore(a.DB, repository.DefaultCallTimeout)
	}

	var norm normalizer.Normalizer
	switch cfg.Normalizer.Provider {
	case "local":
		norm = local.New()
		logger.Info("Using built-in CSV normalizer")
	default:
		norm = remote.New(&cfg.Normalizer.Endpoint)
		logger.Info("Using normalization service at %s", cfg.Normalizer.Endpoint.BaseURL)
	}

	if cfg.Storage.Enabled {
		objects, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
		a.Archive = storage.NewUploadArchive(objects)
	}

	var persist store.JobStore
	if cfg.Jobs.Persist {
		persist = repository.NewJobRepository(a.DB, repository.DefaultCallTimeout)
	}
	a.Jobs = service.NewJobRegistry(persist)
	if n, err := a.Jobs.RecoverInterrupted(ctx); err != nil {
		logger.Warn("Failed to recover interrupted jobs: %v", err)
	} else if n > 0 {
		logger.Info("Marked %d jobs from a previous run as interrupted", n)
	}

	a.Lists = service.NewListService(a.Store)
	a.Intake = service.NewIntakeService(
		a.Lists,
		norm,
		service.NewDedupEngine(a.Store, cfg.Ingest.RecordTimeout),
		a.Jobs,
		a.Archive,
		&service.IntakeConfig{Workers: cfg.Ingest.Workers},
	)
	return a, nil
}

// Close releases the database connection.
func (a *App) Close() {
	if a.SQLDB != nil {
		if err := a.SQLDB.Close(); err != nil {
			logger.Warn("Failed to close database: %v", err)
		}
	}
}
