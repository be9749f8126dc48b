package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain via context.
const (
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldTenantID  = "tenant_id"
	FieldListID    = "list_id"
	FieldComponent = "component"
	FieldFileName  = "file_name"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
	FieldAdded      = "added"
	FieldDuplicates = "duplicates"
	FieldFailed     = "failed"
	FieldErrorCode  = "error_code"
)
