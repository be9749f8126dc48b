package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/service"
)

// ImportHandler accepts CSV uploads.
type ImportHandler struct {
	intake   *service.IntakeService
	maxBytes int64
}

// NewImportHandler creates an import handler. maxBytes caps the uploaded file size.
func NewImportHandler(intake *service.IntakeService, maxBytes int64) *ImportHandler {
	return &ImportHandler{intake: intake, maxBytes: maxBytes}
}

// SubmitResponse is returned by an asynchronous import.
type SubmitResponse struct {
	JobID string `json:"jobId"`
}

// Create handles POST /api/v1/tenants/:tenant_id/imports.
//
// Form fields: file (required), existing_list_id or new_list_name, tags (comma separated).
// With ?wait=true the pipeline runs inline and the terminal job is returned.
func (h *ImportHandler) Create(c *gin.Context) {
	if h.maxBytes > 0 {
		// multipart framing needs some headroom over the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		respondValidation(c, "multipart field 'file' is required")
		return
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: "file exceeds the upload limit",
			Code:  domain.CodeValidation,
			Hint:  "max " + strconv.FormatInt(h.maxBytes>>20, 10) + " MB",
		})
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondValidation(c, "could not open uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondValidation(c, "could not read uploaded file")
		return
	}

	req := service.IntakeRequest{
		TenantID: c.Param("tenant_id"),
		FileName: fh.Filename,
		Data:     data,
		Selection: domain.ListSelection{
			ExistingListID: c.PostForm("existing_list_id"),
			NewListName:    c.PostForm("new_list_name"),
			Tags:           splitTags(c.PostForm("tags")),
		},
	}

	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		job, err := h.intake.Run(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, job)
		return
	}

	jobID, err := h.intake.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Location", c.Request.URL.Path[:strings.LastIndex(c.Request.URL.Path, "/")]+"/jobs/"+jobID)
	c.JSON(http.StatusAccepted, SubmitResponse{JobID: jobID})
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
