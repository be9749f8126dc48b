package logger

import (
	"context"

	"github.com/timmy/leadflow/internal/domain"
)

// Entry carries metric fields for a single log line.
//
//	logger.With(logger.Fields{"duration_ms": 1234}).Info(ctx, "Batch done")
type Entry struct {
	fields Fields
}

// With creates a new Entry with the given metric fields.
func With(fields Fields) *Entry {
	return &Entry{fields: fields}
}

// With adds more fields to an existing Entry.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{fields: merged}
}

func (e *Entry) WithDuration(ms int64) *Entry {
	return e.With(Fields{FieldDurationMs: ms})
}

func (e *Entry) WithCount(count int) *Entry {
	return e.With(Fields{FieldCount: count})
}

func (e *Entry) WithSize(size int64) *Entry {
	return e.With(Fields{FieldSize: size})
}

// WithSummary adds the outcome counters of an ingestion.
func (e *Entry) WithSummary(s *domain.IngestionSummary) *Entry {
	if s == nil {
		return e
	}
	return e.With(Fields{
		FieldListID:     s.ListID,
		FieldAdded:      s.AddedCount,
		FieldDuplicates: s.DuplicateCount,
		FieldFailed:     s.FailedCount,
	})
}

// WithErr adds the error message and its stable code.
func (e *Entry) WithErr(err error) *Entry {
	if err == nil {
		return e
	}
	return e.With(Fields{"error": err.Error(), FieldErrorCode: domain.ErrorCode(err)})
}

func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Debugf(format, args...)
}

func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Infof(format, args...)
}

func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Warnf(format, args...)
}

func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Errorf(format, args...)
}
