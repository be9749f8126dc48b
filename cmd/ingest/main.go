package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/timmy/leadflow/internal/app"
	"github.com/timmy/leadflow/internal/config"
	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/logger"
	"github.com/timmy/leadflow/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := app.NewLogger(nil, "leadflow-ingest")
	logger.SetDefaultLogger(appLogger)

	configPath := flag.String("config", "", "Path to config file")
	filePath := flag.String("file", "", "CSV file to ingest")
	archiveKey := flag.String("archive-key", "", "Replay an archived upload instead of -file")
	tenantID := flag.String("tenant", "", "Tenant that owns the list")
	listID := flag.String("list", "", "Existing list id")
	newList := flag.String("new-list", "", "Name of a list to create")
	tags := flag.String("tags", "", "Comma separated tags for a new list")
	useLocal := flag.Bool("local", false, "Parse the CSV locally instead of calling the normalization service")
	flag.Parse()

	if (*filePath == "") == (*archiveKey == "") {
		appLogger.Fatal("Exactly one of -file and -archive-key is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if *useLocal {
		cfg.Normalizer.Provider = "local"
	}

	appLogger = app.NewLogger(&cfg.Log, "leadflow-ingest")
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize pipeline")
	}
	defer a.Close()

	var data []byte
	fileName := filepath.Base(*filePath)
	if *archiveKey != "" {
		if a.Archive == nil {
			appLogger.Fatal("-archive-key needs storage.enabled")
		}
		data, err = a.Archive.Load(ctx, *archiveKey, cfg.Ingest.MaxUploadBytes())
		fileName = filepath.Base(*archiveKey)
	} else {
		data, err = os.ReadFile(*filePath)
	}
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read upload")
	}

	var tagList []string
	for _, t := range strings.Split(*tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tagList = append(tagList, t)
		}
	}

	appLogger.WithFields(logger.Fields{
		logger.FieldTenantID: *tenantID,
		logger.FieldFileName: fileName,
		logger.FieldSize:     len(data),
	}).Info("Starting ingestion")

	job, err := a.Intake.Run(ctx, service.IntakeRequest{
		TenantID: *tenantID,
		FileName: fileName,
		Data:     data,
		Selection: domain.ListSelection{
			ExistingListID: *listID,
			NewListName:    *newList,
			Tags:           tagList,
		},
	})
	if err != nil {
		appLogger.WithError(err).WithField(logger.FieldErrorCode, domain.ErrorCode(err)).Fatal("Ingestion rejected")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(job); err != nil {
		appLogger.WithError(err).Error("Failed to print job")
	}
	if job.Status != domain.JobStatusCompleted {
		a.Close()
		os.Exit(1)
	}
}
