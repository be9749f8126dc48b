package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/logger"
	"github.com/timmy/leadflow/internal/metrics"
	"github.com/timmy/leadflow/internal/normalizer"
	"github.com/timmy/leadflow/internal/store"
)

// MaxRecordedFailures caps IngestionSummary.Failures; FailedCount keeps counting past it.
const MaxRecordedFailures = 50

// IngestOptions lets the caller observe and stop an ingestion between records.
type IngestOptions struct {
	// Cancelled is polled before each record.
	Cancelled func() bool
	// OnProgress is called after each record with the number of records decided so far.
	OnProgress func(done, total int)
}

// DedupEngine decides, record by record, whether a contact is new and persists new ones.
type DedupEngine struct {
	store         store.ContactStore
	recordTimeout time.Duration
}

// NewDedupEngine creates an engine whose per-record store calls are bounded by recordTimeout.
func NewDedupEngine(s store.ContactStore, recordTimeout time.Duration) *DedupEngine {
	if recordTimeout <= 0 {
		recordTimeout = 5 * time.Second
	}
	return &DedupEngine{store: s, recordTimeout: recordTimeout}
}

// Ingest processes records in input order into list. Per-record store failures are
// counted and never abort the batch. When the context ends or opts.Cancelled reports
// true, Ingest stops before the next record and returns the partial summary with
// domain.ErrCancelled.
func (e *DedupEngine) Ingest(ctx context.Context, list *domain.List, records []normalizer.RawRecord, tenantID string, opts IngestOptions) (*domain.IngestionSummary, error) {
	summary := &domain.IngestionSummary{ListID: list.ID, ListName: list.Name}
	if list.TenantID != tenantID {
		return summary, domain.Validationf("list %s does not belong to tenant %s", list.ID, tenantID)
	}

	total := len(records)
	for i, rec := range records {
		if ctx.Err() != nil || (opts.Cancelled != nil && opts.Cancelled()) {
			return summary, errors.Wrapf(domain.ErrCancelled, "stopped after %d of %d records", i, total)
		}

		fields := canonicalize(rec)
		outcome, err := e.ingestRecord(ctx, list, tenantID, fields)
		if err != nil && ctx.Err() != nil {
			// the record was interrupted, not decided
			return summary, errors.Wrapf(domain.ErrCancelled, "stopped after %d of %d records", i, total)
		}

		switch outcome {
		case metrics.OutcomeAdded:
			summary.AddedCount++
		case metrics.OutcomeDuplicate:
			summary.DuplicateCount++
		default:
			summary.FailedCount++
			if len(summary.Failures) < MaxRecordedFailures {
				summary.Failures = append(summary.Failures, domain.RecordFailure{
					Index:  i,
					Email:  fields[domain.FieldEmail],
					Reason: err.Error(),
				})
			}
			logger.FromContext(ctx).WithError(err).WithField("index", i).Warn("Failed to persist record")
		}
		metrics.ObserveRecord(outcome)
		logger.CtxDebug(ctx, "Record %d/%d: %s", i+1, total, outcome)

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, total)
		}
	}

	return summary, nil
}

// ingestRecord returns the outcome of one record and, for failures, the cause.
func (e *DedupEngine) ingestRecord(ctx context.Context, list *domain.List, tenantID string, fields map[string]string) (string, error) {
	email := fields[domain.FieldEmail]
	contact := newContact(list, tenantID, fields)

	if domain.UsableEmail(email) {
		existing, err := e.findByEmail(ctx, tenantID, email)
		if err != nil {
			return metrics.OutcomeFailed, err
		}
		if len(existing) > 0 {
			return metrics.OutcomeDuplicate, nil
		}
	}

	if err := e.create(ctx, contact); err != nil {
		if errors.Is(err, domain.ErrDuplicateContact) {
			// lost a race with a concurrent ingestion of the same email
			return metrics.OutcomeDuplicate, nil
		}
		return metrics.OutcomeFailed, err
	}
	return metrics.OutcomeAdded, nil
}

func (e *DedupEngine) findByEmail(ctx context.Context, tenantID, email string) ([]domain.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, e.recordTimeout)
	defer cancel()
	contacts, err := e.store.FindActiveContactsByEmail(ctx, tenantID, email)
	return contacts, storeErr(ctx, err)
}

func (e *DedupEngine) create(ctx context.Context, contact *domain.Contact) error {
	ctx, cancel := context.WithTimeout(ctx, e.recordTimeout)
	defer cancel()
	return storeErr(ctx, e.store.CreateContact(ctx, contact))
}

// storeErr reports a per-record deadline as store unavailability.
func storeErr(ctx context.Context, err error) error {
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}

func newContact(list *domain.List, tenantID string, fields map[string]string) *domain.Contact {
	contact := &domain.Contact{
		TenantID: tenantID,
		ListID:   list.ID,
		ListName: list.Name,
		Fields:   domain.StringMap{},
		Tags:     append(domain.StringArray{}, list.Tags...),
		Active:   true,
		Source:   domain.ContactSourceCSV,
	}
	for k, v := range fields {
		if k == domain.FieldEmail || v == "" {
			continue
		}
		contact.Fields[k] = v
	}
	if email := fields[domain.FieldEmail]; domain.UsableEmail(email) {
		trimmed := email
		key := domain.EmailKey(email)
		contact.Email = &trimmed
		contact.DedupeKey = &key
	}
	return contact
}
