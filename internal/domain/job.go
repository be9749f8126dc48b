package domain

import (
	"time"
)

// JobType identifies the kind of asynchronous workflow a job tracks.
type JobType string

const (
	JobTypeIngest JobType = "ingest"
	JobTypeSearch JobType = "search"
)

// JobStatus represents the status of a job.
// Transitions are pending -> completed or pending -> failed; terminal states never change.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether the status is completed or failed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Progress counts processed records against the batch size.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// RecordFailure describes one record the engine could not persist.
type RecordFailure struct {
	Index  int    `json:"index"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

// IngestionSummary is the result of an ingestion job.
type IngestionSummary struct {
	ListID         string          `json:"listId"`
	ListName       string          `json:"listName"`
	AddedCount     int             `json:"addedCount"`
	DuplicateCount int             `json:"duplicateCount"`
	FailedCount    int             `json:"failedCount"`
	Failures       []RecordFailure `json:"failures,omitempty"`
}

// Processed returns the number of records that reached a decision.
func (s *IngestionSummary) Processed() int {
	return s.AddedCount + s.DuplicateCount + s.FailedCount
}

// Clone returns a deep copy.
func (s *IngestionSummary) Clone() *IngestionSummary {
	if s == nil {
		return nil
	}
	out := *s
	if s.Failures != nil {
		out.Failures = append([]RecordFailure(nil), s.Failures...)
	}
	return &out
}

// Job represents a tracked unit of asynchronous work.
type Job struct {
	ID              string            `gorm:"type:text;primaryKey" json:"id"`
	TenantID        string            `gorm:"type:text;not null;index:idx_jobs_tenant_type" json:"tenantId"`
	Type            JobType           `gorm:"type:text;not null;index:idx_jobs_tenant_type" json:"type"`
	Status          JobStatus         `gorm:"type:text;not null;index;default:pending" json:"status"`
	Params          JSONMap           `gorm:"type:text" json:"params"`
	Progress        Progress          `gorm:"embedded;embeddedPrefix:progress_" json:"progress"`
	CancelRequested bool              `gorm:"not null;default:false" json:"cancelRequested"`
	Result          *IngestionSummary `gorm:"type:text;serializer:json" json:"result"`
	Error           *string           `gorm:"type:text" json:"error"`
	ErrorCode       string            `gorm:"type:text" json:"errorCode,omitempty"`
	CreatedAt       time.Time         `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string {
	return "jobs"
}

// Complete marks the job completed with its result.
func (j *Job) Complete(result *IngestionSummary, now time.Time) {
	j.Status = JobStatusCompleted
	j.Result = result
	j.UpdatedAt = now
}

// Fail marks the job failed with a human-readable message and error code.
// partial may carry the counts of work done before the failure.
func (j *Job) Fail(err error, partial *IngestionSummary, now time.Time) {
	msg := err.Error()
	j.Status = JobStatusFailed
	j.Error = &msg
	j.ErrorCode = ErrorCode(err)
	if partial != nil {
		j.Result = partial
	}
	j.UpdatedAt = now
}

// Clone returns a deep copy safe to hand to readers.
func (j *Job) Clone() *Job {
	out := *j
	if j.Params != nil {
		out.Params = make(JSONMap, len(j.Params))
		for k, v := range j.Params {
			out.Params[k] = v
		}
	}
	out.Result = j.Result.Clone()
	if j.Error != nil {
		msg := *j.Error
		out.Error = &msg
	}
	return &out
}
