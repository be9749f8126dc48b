package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/logger"
	"github.com/timmy/leadflow/internal/metrics"
	"github.com/timmy/leadflow/internal/normalizer"
	"github.com/timmy/leadflow/internal/storage"
)

// IntakeRequest is one upload to ingest.
type IntakeRequest struct {
	TenantID  string
	FileName  string
	Data      []byte
	Selection domain.ListSelection
}

// IntakeConfig holds configuration for the intake service.
type IntakeConfig struct {
	Workers int // concurrent background ingestions
}

// IntakeService drives an upload through list resolution, normalization and
// deduplication, and is the only component that moves a job through its lifecycle.
type IntakeService struct {
	lists      *ListService
	normalizer normalizer.Normalizer
	engine     *DedupEngine
	jobs       *JobRegistry
	archive    *storage.UploadArchive

	sem        chan struct{}
	wg         sync.WaitGroup
	rootCtx    context.Context
	cancelRoot context.CancelFunc
}

// NewIntakeService wires the pipeline. archive may be nil to skip archiving uploads.
func NewIntakeService(
	lists *ListService,
	norm normalizer.Normalizer,
	engine *DedupEngine,
	jobs *JobRegistry,
	archive *storage.UploadArchive,
	cfg *IntakeConfig,
) *IntakeService {
	workers := 1
	if cfg != nil && cfg.Workers > 0 {
		workers = cfg.Workers
	}
	rootCtx, cancel := context.WithCancel(context.Background())
	return &IntakeService{
		lists:      lists,
		normalizer: norm,
		engine:     engine,
		jobs:       jobs,
		archive:    archive,
		sem:        make(chan struct{}, workers),
		rootCtx:    rootCtx,
		cancelRoot: cancel,
	}
}

// Jobs exposes the registry for pollers.
func (s *IntakeService) Jobs() *JobRegistry {
	return s.jobs
}

// Submit validates req, creates its ingest job and runs the pipeline in the
// background. Invalid requests fail with domain.ErrValidation and create no job.
func (s *IntakeService) Submit(ctx context.Context, req IntakeRequest) (string, error) {
	job, err := s.start(ctx, req)
	if err != nil {
		return "", err
	}

	// the work outlives the request; keep its log fields, not its cancellation
	bg := logger.FromContext(ctx).WithContext(s.rootCtx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case s.sem <- struct{}{}:
		case <-s.rootCtx.Done():
			s.finish(bg, job.ID, errors.Wrap(domain.ErrInterrupted, "shut down before start"), nil)
			return
		}
		defer func() { <-s.sem }()

		metrics.IncrementInFlight()
		defer metrics.DecrementInFlight()

		s.process(bg, job.ID, req)
	}()

	return job.ID, nil
}

// Run is Submit without the background goroutine: it returns once the job is terminal.
// The returned error covers validation and job creation only; pipeline failures are
// reported on the job.
func (s *IntakeService) Run(ctx context.Context, req IntakeRequest) (*domain.Job, error) {
	job, err := s.start(ctx, req)
	if err != nil {
		return nil, err
	}
	s.process(ctx, job.ID, req)
	return s.jobs.Get(ctx, job.ID)
}

// Cancel asks a pending job to stop. The job fails with domain.ErrCancelled once the
// pipeline notices.
func (s *IntakeService) Cancel(ctx context.Context, tenantID, jobID string) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.TenantID != tenantID {
		return errors.Wrapf(domain.ErrNotFound, "job %s", jobID)
	}
	return s.jobs.RequestCancel(ctx, jobID)
}

// Shutdown stops background ingestions and waits for them to record their state.
func (s *IntakeService) Shutdown(ctx context.Context) error {
	s.cancelRoot()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *IntakeService) start(ctx context.Context, req IntakeRequest) (*domain.Job, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	params := domain.JSONMap{
		"tenantId":      req.TenantID,
		"listSelection": req.Selection.AsParams(),
		"fileName":      req.FileName,
		"fileSize":      len(req.Data),
	}
	if key := s.archiveUpload(ctx, req); key != "" {
		params["archiveKey"] = key
	}

	job, err := s.jobs.CreateJob(ctx, req.TenantID, domain.JobTypeIngest, params)
	if err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldJobID:    job.ID,
		logger.FieldTenantID: req.TenantID,
		logger.FieldFileName: req.FileName,
	}).WithSize(int64(len(req.Data))).Info(ctx, "Ingestion job created")
	return job, nil
}

func validateRequest(req *IntakeRequest) error {
	req.TenantID = strings.TrimSpace(req.TenantID)
	if req.TenantID == "" {
		return domain.Validationf("tenant id is required")
	}
	if len(req.Data) == 0 {
		return domain.Validationf("uploaded file is empty")
	}
	if strings.TrimSpace(req.FileName) == "" {
		req.FileName = "upload.csv"
	}
	return req.Selection.Validate()
}

// archiveUpload stores the raw file and returns its key, or "" when archiving is off
// or failed. A failed archive never blocks ingestion.
func (s *IntakeService) archiveUpload(ctx context.Context, req IntakeRequest) string {
	if s.archive == nil {
		return ""
	}
	key := s.archive.Key(req.TenantID, uuid.New().String(), req.FileName)
	if err := s.archive.Save(ctx, key, req.Data); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to archive upload")
		return ""
	}
	return key
}

func (s *IntakeService) process(ctx context.Context, jobID string, req IntakeRequest) {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldJobID:     jobID,
		logger.FieldTenantID:  req.TenantID,
		logger.FieldComponent: "intake",
	})
	start := time.Now()

	if s.stopRequested(ctx, jobID) {
		s.finish(ctx, jobID, s.stopCause(ctx, "before start"), nil)
		return
	}

	list, err := s.lists.ResolveOrCreate(ctx, req.TenantID, req.Selection)
	if err != nil {
		s.finish(ctx, jobID, err, nil)
		return
	}
	ctx = logger.SetListID(ctx, list.ID)
	partial := &domain.IngestionSummary{ListID: list.ID, ListName: list.Name}

	records, err := s.normalizer.Normalize(ctx, req.FileName, req.Data)
	if err != nil {
		if ctx.Err() != nil {
			err = s.stopCause(ctx, "during normalization")
		}
		s.finish(ctx, jobID, err, partial)
		return
	}

	if s.stopRequested(ctx, jobID) {
		s.finish(ctx, jobID, s.stopCause(ctx, "after normalization"), partial)
		return
	}
	s.jobs.UpdateProgress(jobID, 0, len(records))

	summary, err := s.engine.Ingest(ctx, list, records, req.TenantID, IngestOptions{
		Cancelled:  func() bool { return s.jobs.CancelRequested(jobID) },
		OnProgress: func(done, total int) { s.jobs.UpdateProgress(jobID, done, total) },
	})
	if err != nil && errors.Is(err, domain.ErrCancelled) && s.rootCtx.Err() != nil {
		err = errors.Wrap(domain.ErrInterrupted, err.Error())
	}

	logger.With(logger.Fields{}).
		WithSummary(summary).
		WithErr(err).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "Ingestion finished")

	if err != nil {
		s.finish(ctx, jobID, err, summary)
		return
	}
	if err := s.jobs.Complete(ctx, jobID, summary); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to complete job")
	}
}

func (s *IntakeService) stopRequested(ctx context.Context, jobID string) bool {
	return ctx.Err() != nil || s.jobs.CancelRequested(jobID)
}

// stopCause distinguishes a shutdown from a caller's cancellation.
func (s *IntakeService) stopCause(ctx context.Context, when string) error {
	if s.rootCtx.Err() != nil && !s.jobs.CancelRequested(logger.GetJobID(ctx)) {
		return errors.Wrap(domain.ErrInterrupted, when)
	}
	return errors.Wrap(domain.ErrCancelled, when)
}

func (s *IntakeService) finish(ctx context.Context, jobID string, cause error, partial *domain.IngestionSummary) {
	logger.With(logger.Fields{logger.FieldJobID: jobID}).WithErr(cause).Warn(ctx, "Ingestion job failed")
	if err := s.jobs.Fail(ctx, jobID, cause, partial); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to record job failure")
	}
}
