package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/leadflow/internal/domain"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "info", Format: "json", Output: &buf, ServiceName: "test"})

	ctx := l.WithContext(context.Background())
	ctx = SetTenantID(ctx, "T1")
	ctx = SetJobID(ctx, "job-1")

	With(Fields{}).WithSummary(&domain.IngestionSummary{ListID: "l-1", AddedCount: 2}).Info(ctx, "done")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "test", line["service"])
	assert.Equal(t, "T1", line[FieldTenantID])
	assert.Equal(t, "job-1", line[FieldJobID])
	assert.Equal(t, "l-1", line[FieldListID])
	assert.EqualValues(t, 2, line[FieldAdded])
	assert.Equal(t, "done", line["message"])

	assert.Equal(t, "T1", GetTenantID(ctx))
	assert.Equal(t, "job-1", GetJobID(ctx))
}

func TestWithErrAddsCode(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Format: "json", Output: &buf})
	With(nil).WithErr(domain.ErrStoreUnavailable).Error(l.WithContext(context.Background()), "failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, domain.CodeStoreUnavailable, line[FieldErrorCode])
}
