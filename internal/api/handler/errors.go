package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/leadflow/internal/api/middleware"
	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/logger"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Hint  string `json:"hint,omitempty"`
}

var statusByCode = map[string]int{
	domain.CodeValidation:               http.StatusBadRequest,
	domain.CodeNotFound:                 http.StatusNotFound,
	domain.CodeDuplicateList:            http.StatusConflict,
	domain.CodeInvalidTransition:        http.StatusConflict,
	domain.CodeNormalizationUnavailable: http.StatusBadGateway,
	domain.CodeMalformedResponse:        http.StatusBadGateway,
	domain.CodeStoreUnavailable:         http.StatusServiceUnavailable,
}

// StatusFor maps an error onto the HTTP status of its code.
func StatusFor(err error) int {
	if status, ok := statusByCode[domain.ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	code := domain.ErrorCode(err)
	if status >= http.StatusInternalServerError {
		middleware.GetLogger(c).WithError(err).WithField(logger.FieldErrorCode, code).
			Errorf("Request failed: path=%s", c.FullPath())
	}

	msg := err.Error()
	if code == domain.CodeInternal {
		msg = "internal error"
	}
	c.JSON(status, ErrorResponse{
		Error: msg,
		Code:  code,
		Hint:  domain.Hint(err),
	})
}

func respondValidation(c *gin.Context, format string, args ...interface{}) {
	respondError(c, domain.Validationf(format, args...))
}
