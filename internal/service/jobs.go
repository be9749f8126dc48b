package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/logger"
	"github.com/timmy/leadflow/internal/metrics"
	"github.com/timmy/leadflow/internal/store"
)

// JobRegistry is the source of truth for job lifecycle. Jobs live in memory and are
// optionally written through to a JobStore; readers always get copies.
//
// Progress updates stay in memory; the persisted row catches up on the next transition.
// Once a terminal job is persisted it leaves memory and is served from the store.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
	// revs counts mutations per in-memory job; saves older than the current revision are dropped.
	revs map[string]uint64

	// saveMu orders writes to persist. Lock order: saveMu before mu.
	saveMu  sync.Mutex
	persist store.JobStore
	now     func() time.Time
}

// NewJobRegistry creates a registry. persist may be nil.
func NewJobRegistry(persist store.JobStore) *JobRegistry {
	return &JobRegistry{
		jobs:    make(map[string]*domain.Job),
		revs:    make(map[string]uint64),
		persist: persist,
		now:     time.Now,
	}
}

// CreateJob allocates a pending job. It fails only when the job cannot be persisted.
func (r *JobRegistry) CreateJob(ctx context.Context, tenantID string, jobType domain.JobType, params domain.JSONMap) (*domain.Job, error) {
	now := r.now()
	job := &domain.Job{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Type:      jobType,
		Status:    domain.JobStatusPending,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if r.persist != nil {
		if err := r.persist.SaveJob(context.WithoutCancel(ctx), job); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return job.Clone(), nil
}

// Complete moves a pending job to completed with result.
func (r *JobRegistry) Complete(ctx context.Context, id string, result *domain.IngestionSummary) error {
	return r.transition(ctx, id, func(job *domain.Job, now time.Time) {
		job.Complete(result.Clone(), now)
	})
}

// Fail moves a pending job to failed. partial, when non-nil, records the work done
// before the failure.
func (r *JobRegistry) Fail(ctx context.Context, id string, cause error, partial *domain.IngestionSummary) error {
	return r.transition(ctx, id, func(job *domain.Job, now time.Time) {
		job.Fail(cause, partial.Clone(), now)
	})
}

func (r *JobRegistry) transition(ctx context.Context, id string, apply func(*domain.Job, time.Time)) error {
	r.mu.Lock()
	job, err := r.lookupLocked(ctx, id)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if job.Status.IsTerminal() {
		r.mu.Unlock()
		return errors.Wrapf(domain.ErrInvalidTransition, "job %s is already %s", id, job.Status)
	}
	apply(job, r.now())
	snapshot, rev := job.Clone(), r.bumpLocked(id)
	r.mu.Unlock()

	metrics.ObserveJob(string(snapshot.Type), string(snapshot.Status), snapshot.ErrorCode, snapshot.UpdatedAt.Sub(snapshot.CreatedAt))
	r.save(ctx, snapshot, rev)
	return nil
}

// Get returns a copy of the job.
func (r *JobRegistry) Get(ctx context.Context, id string) (*domain.Job, error) {
	r.mu.RLock()
	var snapshot *domain.Job
	if job, ok := r.jobs[id]; ok {
		snapshot = job.Clone()
	}
	r.mu.RUnlock()
	if snapshot != nil {
		return snapshot, nil
	}

	if r.persist == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "job %s", id)
	}
	return r.persist.GetJob(ctx, id)
}

// List returns the tenant's jobs, newest first. An empty jobType matches every type.
func (r *JobRegistry) List(ctx context.Context, tenantID string, jobType domain.JobType) ([]domain.Job, error) {
	seen := make(map[string]struct{})
	var out []domain.Job

	r.mu.RLock()
	for _, job := range r.jobs {
		if job.TenantID != tenantID || (jobType != "" && job.Type != jobType) {
			continue
		}
		seen[job.ID] = struct{}{}
		out = append(out, *job.Clone())
	}
	r.mu.RUnlock()

	if r.persist != nil {
		stored, err := r.persist.ListJobs(ctx, tenantID, jobType)
		if err != nil {
			return nil, err
		}
		for _, job := range stored {
			if _, ok := seen[job.ID]; !ok {
				out = append(out, job)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// RequestCancel flags a pending job for cancellation. The running ingestion stops at
// the next record boundary.
func (r *JobRegistry) RequestCancel(ctx context.Context, id string) error {
	r.mu.Lock()
	job, err := r.lookupLocked(ctx, id)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if job.Status.IsTerminal() {
		r.mu.Unlock()
		return errors.Wrapf(domain.ErrInvalidTransition, "job %s is already %s", id, job.Status)
	}
	job.CancelRequested = true
	job.UpdatedAt = r.now()
	snapshot, rev := job.Clone(), r.bumpLocked(id)
	r.mu.Unlock()

	r.save(ctx, snapshot, rev)
	return nil
}

// CancelRequested reports whether cancellation was requested for the job.
func (r *JobRegistry) CancelRequested(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return ok && job.CancelRequested
}

// UpdateProgress records how many records of the batch were decided.
func (r *JobRegistry) UpdateProgress(id string, done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok && !job.Status.IsTerminal() {
		job.Progress = domain.Progress{Done: done, Total: total}
		job.UpdatedAt = r.now()
	}
}

// RecoverInterrupted fails every persisted job still pending, which can only mean the
// process stopped while running it. Call once at startup.
func (r *JobRegistry) RecoverInterrupted(ctx context.Context) (int, error) {
	if r.persist == nil {
		return 0, nil
	}
	pending, err := r.persist.ListJobsByStatus(ctx, domain.JobStatusPending)
	if err != nil {
		return 0, err
	}

	for i := range pending {
		job := pending[i]
		job.Fail(domain.ErrInterrupted, job.Result, r.now())
		if err := r.persist.SaveJob(ctx, &job); err != nil {
			return i, err
		}
		logger.With(logger.Fields{logger.FieldJobID: job.ID, logger.FieldTenantID: job.TenantID}).
			Warn(ctx, "Marked interrupted job as failed")
	}
	return len(pending), nil
}

// lookupLocked finds a job in memory, loading it from the store if needed. Terminal
// jobs loaded from the store are returned without being cached.
// Callers hold r.mu.
func (r *JobRegistry) lookupLocked(ctx context.Context, id string) (*domain.Job, error) {
	if job, ok := r.jobs[id]; ok {
		return job, nil
	}
	if r.persist == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "job %s", id)
	}
	job, err := r.persist.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsTerminal() {
		r.jobs[id] = job
	}
	return job, nil
}

// bumpLocked records a mutation of job id and returns its new revision.
// Callers hold r.mu.
func (r *JobRegistry) bumpLocked(id string) uint64 {
	r.revs[id]++
	return r.revs[id]
}

// save writes snapshot unless a newer revision of the job exists, in which case that
// revision's own save carries the state. A persisted terminal job is evicted.
func (r *JobRegistry) save(ctx context.Context, job *domain.Job, rev uint64) {
	if r.persist == nil {
		return
	}
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.RLock()
	current, ok := r.revs[job.ID]
	r.mu.RUnlock()
	if !ok || rev < current {
		return
	}

	if err := r.persist.SaveJob(context.WithoutCancel(ctx), job); err != nil {
		logger.FromContext(ctx).WithError(err).WithField(logger.FieldJobID, job.ID).Warn("Failed to persist job")
		return
	}
	if job.Status.IsTerminal() {
		r.mu.Lock()
		if r.revs[job.ID] == rev {
			delete(r.jobs, job.ID)
			delete(r.revs, job.ID)
		}
		r.mu.Unlock()
	}
}
