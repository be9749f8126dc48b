package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/timmy/leadflow/internal/domain"
)

// JobRepository persists job records.
type JobRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewJobRepository(db *gorm.DB, timeout time.Duration) *JobRepository {
	return &JobRepository{db: db, timeout: timeout}
}

// jobMutableColumns are rewritten when an existing job row is saved again.
var jobMutableColumns = []string{
	"status", "params", "progress_done", "progress_total", "cancel_requested",
	"result", "error", "error_code", "updated_at",
}

// SaveJob inserts a job row or overwrites a pending one. A row that already reached a
// terminal status is left unchanged, so a late pending snapshot cannot undo a completion.
func (r *JobRepository) SaveJob(ctx context.Context, job *domain.Job) error {
	ctx, cancel := scoped(ctx, r.timeout)
	defer cancel()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(jobMutableColumns),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "jobs", Name: "status"}, Value: domain.JobStatusPending},
		}},
	}).Create(job).Error
	return translate(err)
}

func (r *JobRepository) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	ctx, cancel := scoped(ctx, r.timeout)
	defer cancel()

	var job domain.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

// ListJobs returns the tenant's jobs, newest first. An empty jobType matches all types.
func (r *JobRepository) ListJobs(ctx context.Context, tenantID string, jobType domain.JobType) ([]domain.Job, error) {
	ctx, cancel := scoped(ctx, r.timeout)
	defer cancel()

	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if jobType != "" {
		query = query.Where("type = ?", jobType)
	}

	var jobs []domain.Job
	if err := query.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, translate(err)
	}
	return jobs, nil
}

func (r *JobRepository) ListJobsByStatus(ctx context.Context, status domain.JobStatus) ([]domain.Job, error) {
	ctx, cancel := scoped(ctx, r.timeout)
	defer cancel()

	var jobs []domain.Job
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, translate(err)
	}
	return jobs, nil
}
