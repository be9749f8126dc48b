package domain

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors for the intake pipeline.
// Wrap with errors.Wrap or fmt.Errorf("%w: ...") and check with errors.Is.
var (
	// ErrValidation indicates a malformed request.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateList indicates an active list with the same name already exists for the tenant.
	ErrDuplicateList = errors.New("list already exists")

	// ErrNotFound indicates the selected list or record does not exist for the tenant.
	ErrNotFound = errors.New("not found")

	// ErrNormalizationUnavailable indicates the normalization service could not be reached
	// or answered with a non-2xx status.
	ErrNormalizationUnavailable = errors.New("normalization service unavailable")

	// ErrMalformedResponse indicates the normalization output was not an array of records.
	ErrMalformedResponse = errors.New("malformed normalization response")

	// ErrStoreUnavailable indicates the list/contact store failed or timed out.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDuplicateContact is returned by stores when the (tenant, email) uniqueness
	// constraint rejects an insert.
	ErrDuplicateContact = errors.New("contact already exists")

	// ErrInvalidTransition indicates a job is already terminal.
	ErrInvalidTransition = errors.New("invalid job transition")

	// ErrCancelled indicates the job was cancelled before finishing.
	ErrCancelled = errors.New("cancelled")

	// ErrInterrupted indicates the job was still pending when the process stopped.
	ErrInterrupted = errors.New("interrupted by restart")
)

// Stable error codes exposed to API callers and stored on failed jobs.
const (
	CodeValidation               = "validation"
	CodeDuplicateList            = "duplicate_list"
	CodeNotFound                 = "not_found"
	CodeNormalizationUnavailable = "normalization_unavailable"
	CodeMalformedResponse        = "malformed_response"
	CodeStoreUnavailable         = "store_unavailable"
	CodeInvalidTransition        = "invalid_transition"
	CodeCancelled                = "cancelled"
	CodeInterrupted              = "interrupted"
	CodeInternal                 = "internal"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrValidation, CodeValidation},
	{ErrDuplicateList, CodeDuplicateList},
	{ErrNotFound, CodeNotFound},
	{ErrNormalizationUnavailable, CodeNormalizationUnavailable},
	{ErrMalformedResponse, CodeMalformedResponse},
	{ErrStoreUnavailable, CodeStoreUnavailable},
	{ErrInvalidTransition, CodeInvalidTransition},
	{ErrCancelled, CodeCancelled},
	{ErrInterrupted, CodeInterrupted},
}

// ErrorCode maps an error onto its stable code, or CodeInternal when it is not
// part of the taxonomy.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// Hint returns the user-facing hints attached to err, if any.
func Hint(err error) string {
	if err == nil {
		return ""
	}
	return errors.FlattenHints(err)
}

// Validationf builds an ErrValidation with a formatted reason.
func Validationf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}
