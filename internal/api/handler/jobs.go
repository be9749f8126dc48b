package handler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/service"
)

// JobHandler exposes job polling and cancellation.
type JobHandler struct {
	intake *service.IntakeService
}

func NewJobHandler(intake *service.IntakeService) *JobHandler {
	return &JobHandler{intake: intake}
}

// JobListResponse wraps a tenant's jobs.
type JobListResponse struct {
	Jobs  []domain.Job `json:"jobs"`
	Total int          `json:"total"`
}

// List handles GET /api/v1/tenants/:tenant_id/jobs?type=.
func (h *JobHandler) List(c *gin.Context) {
	jobType := domain.JobType(c.Query("type"))
	switch jobType {
	case "", domain.JobTypeIngest, domain.JobTypeSearch:
	default:
		respondValidation(c, "unknown job type %q", jobType)
		return
	}

	jobs, err := h.intake.Jobs().List(c.Request.Context(), c.Param("tenant_id"), jobType)
	if err != nil {
		respondError(c, err)
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	c.JSON(http.StatusOK, JobListResponse{Jobs: jobs, Total: len(jobs)})
}

// Get handles GET /api/v1/tenants/:tenant_id/jobs/:id.
// Jobs of other tenants are reported as missing.
func (h *JobHandler) Get(c *gin.Context) {
	id := c.Param("id")
	job, err := h.intake.Jobs().Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if job.TenantID != c.Param("tenant_id") {
		respondError(c, errors.Wrapf(domain.ErrNotFound, "job %s", id))
		return
	}
	c.JSON(http.StatusOK, job)
}

// Cancel handles POST /api/v1/tenants/:tenant_id/jobs/:id/cancel.
func (h *JobHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.intake.Cancel(ctx, c.Param("tenant_id"), id); err != nil {
		respondError(c, err)
		return
	}
	job, err := h.intake.Jobs().Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}
