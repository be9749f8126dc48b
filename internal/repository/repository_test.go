package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/timmy/leadflow/internal/config"
	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/store"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "leadflow.db"),
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func strPtr(s string) *string { return &s }

func TestListRepositoryActiveNameUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewListRepository(newTestDB(t), time.Second)

	first := &domain.List{TenantID: "T1", Name: "Leads", Active: true}
	require.NoError(t, repo.CreateList(ctx, first))
	assert.NotEmpty(t, first.ID)

	err := repo.CreateList(ctx, &domain.List{TenantID: "T1", Name: "Leads", Active: true})
	assert.ErrorIs(t, err, domain.ErrDuplicateList)

	// case-sensitive and tenant-scoped
	require.NoError(t, repo.CreateList(ctx, &domain.List{TenantID: "T1", Name: "leads", Active: true}))
	require.NoError(t, repo.CreateList(ctx, &domain.List{TenantID: "T2", Name: "Leads", Active: true}))

	first.Active = false
	require.NoError(t, repo.UpdateList(ctx, first))
	require.NoError(t, repo.CreateList(ctx, &domain.List{TenantID: "T1", Name: "Leads", Active: true}))

	found, err := repo.FindActiveListsByName(ctx, "T1", "Leads")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.NotEqual(t, first.ID, found[0].ID)

	all, err := repo.ListLists(ctx, "T1", true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	active, err := repo.ListLists(ctx, "T1", false)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestListRepositoryGetListIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	repo := NewListRepository(newTestDB(t), time.Second)

	list := &domain.List{TenantID: "T1", Name: "Leads", Tags: domain.NewTagSet([]string{"q3"}), Active: true}
	require.NoError(t, repo.CreateList(ctx, list))

	got, err := repo.GetList(ctx, "T1", list.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StringArray{"q3"}, got.Tags)

	_, err = repo.GetList(ctx, "T2", list.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.UpdateList(ctx, &domain.List{ID: list.ID, TenantID: "T2", Name: "x", Active: true})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContactRepositoryDedupeKeyConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewContactRepository(newTestDB(t), time.Second)

	first := &domain.Contact{TenantID: "T1", ListID: "l-1", Email: strPtr("a@x.com"), DedupeKey: strPtr("a@x.com"), Active: true}
	require.NoError(t, repo.CreateContact(ctx, first))

	err := repo.CreateContact(ctx, &domain.Contact{TenantID: "T1", ListID: "l-2", Email: strPtr("A@x.com"), DedupeKey: strPtr("a@x.com"), Active: true})
	assert.ErrorIs(t, err, domain.ErrDuplicateContact)

	// other tenant and NULL keys never collide
	require.NoError(t, repo.CreateContact(ctx, &domain.Contact{TenantID: "T2", ListID: "l-3", Email: strPtr("a@x.com"), DedupeKey: strPtr("a@x.com"), Active: true}))
	require.NoError(t, repo.CreateContact(ctx, &domain.Contact{TenantID: "T1", ListID: "l-1", Active: true}))
	require.NoError(t, repo.CreateContact(ctx, &domain.Contact{TenantID: "T1", ListID: "l-1", Active: true}))

	found, err := repo.FindActiveContactsByEmail(ctx, "T1", " A@X.COM ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, first.ID, found[0].ID)
}

func TestContactRepositoryListContacts(t *testing.T) {
	ctx := context.Background()
	repo := NewContactRepository(newTestDB(t), time.Second)

	require.NoError(t, repo.CreateContact(ctx, &domain.Contact{
		TenantID: "T1", ListID: "l-1", Email: strPtr("ada@x.com"), DedupeKey: strPtr("ada@x.com"),
		Fields: domain.StringMap{domain.FieldCompany: "Analytical Engines"}, Active: true,
	}))
	require.NoError(t, repo.CreateContact(ctx, &domain.Contact{
		TenantID: "T1", ListID: "l-2", Fields: domain.StringMap{domain.FieldCompany: "Difference Ltd"}, Active: true,
	}))

	byList, err := repo.ListContacts(ctx, "T1", store.ContactFilter{ListID: "l-1"})
	require.NoError(t, err)
	assert.Len(t, byList, 1)

	byText, err := repo.ListContacts(ctx, "T1", store.ContactFilter{Contains: "difference"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, "l-2", byText[0].ListID)

	byEmail, err := repo.ListContacts(ctx, "T1", store.ContactFilter{Email: "ADA@x.com"})
	require.NoError(t, err)
	assert.Len(t, byEmail, 1)

	other, err := repo.ListContacts(ctx, "T2", store.ContactFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestJobRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(newTestDB(t), time.Second)

	base := time.Now().Add(-time.Hour)
	older := &domain.Job{ID: "j-1", TenantID: "T1", Type: domain.JobTypeIngest, Status: domain.JobStatusPending,
		Params: domain.JSONMap{"fileName": "a.csv"}, CreatedAt: base, UpdatedAt: base}
	newer := &domain.Job{ID: "j-2", TenantID: "T1", Type: domain.JobTypeSearch, Status: domain.JobStatusPending,
		CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute)}
	require.NoError(t, repo.SaveJob(ctx, older))
	require.NoError(t, repo.SaveJob(ctx, newer))

	older.Complete(&domain.IngestionSummary{ListID: "l-1", AddedCount: 2}, time.Now())
	require.NoError(t, repo.SaveJob(ctx, older))

	got, err := repo.GetJob(ctx, "j-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 2, got.Result.AddedCount)
	assert.Equal(t, "a.csv", got.Params["fileName"])

	jobs, err := repo.ListJobs(ctx, "T1", "")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "j-2", jobs[0].ID)

	ingest, err := repo.ListJobs(ctx, "T1", domain.JobTypeIngest)
	require.NoError(t, err)
	assert.Len(t, ingest, 1)

	pending, err := repo.ListJobsByStatus(ctx, domain.JobStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "j-2", pending[0].ID)

	_, err = repo.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContactRepositoryLookupUsesDedupeKey(t *testing.T) {
	ctx := context.Background()
	repo := NewContactRepository(newTestDB(t), time.Second)

	// an email without a dedupe key takes no part in duplicate detection
	require.NoError(t, repo.CreateContact(ctx, &domain.Contact{TenantID: "T1", ListID: "l-1", Email: strPtr("a@x.com"), Active: true}))
	found, err := repo.FindActiveContactsByEmail(ctx, "T1", "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, found)

	keyed := &domain.Contact{TenantID: "T1", ListID: "l-1", Email: strPtr("A@X.com"), DedupeKey: strPtr("a@x.com"), Active: true}
	require.NoError(t, repo.CreateContact(ctx, keyed))
	found, err = repo.FindActiveContactsByEmail(ctx, "T1", "A@X.COM")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, keyed.ID, found[0].ID)
}

func TestContactRepositoryInactiveRowsReleaseDedupeKey(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewContactRepository(db, time.Second)

	old := &domain.Contact{TenantID: "T1", ListID: "l-1", Email: strPtr("a@x.com"), DedupeKey: strPtr("a@x.com"), Active: true}
	require.NoError(t, repo.CreateContact(ctx, old))
	require.NoError(t, db.Model(&domain.Contact{}).Where("id = ?", old.ID).Update("active", false).Error)

	fresh := &domain.Contact{TenantID: "T1", ListID: "l-2", Email: strPtr("a@x.com"), DedupeKey: strPtr("a@x.com"), Active: true}
	require.NoError(t, repo.CreateContact(ctx, fresh))

	err := repo.CreateContact(ctx, &domain.Contact{TenantID: "T1", ListID: "l-3", Email: strPtr("a@x.com"), DedupeKey: strPtr("a@x.com"), Active: true})
	assert.ErrorIs(t, err, domain.ErrDuplicateContact)

	found, err := repo.FindActiveContactsByEmail(ctx, "T1", "a@x.com")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, fresh.ID, found[0].ID)
}

func TestJobRepositoryKeepsTerminalRow(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(newTestDB(t), time.Second)

	now := time.Now()
	job := &domain.Job{ID: "j-1", TenantID: "T1", Type: domain.JobTypeIngest, Status: domain.JobStatusPending,
		CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.SaveJob(ctx, job))

	stale := job.Clone()
	stale.CancelRequested = true
	stale.UpdatedAt = now.Add(time.Second)

	job.Complete(&domain.IngestionSummary{AddedCount: 4}, now.Add(2*time.Second))
	require.NoError(t, repo.SaveJob(ctx, job))

	// a pending snapshot landing after the completion is ignored
	require.NoError(t, repo.SaveJob(ctx, stale))

	got, err := repo.GetJob(ctx, "j-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.False(t, got.CancelRequested)
	require.NotNil(t, got.Result)
	assert.Equal(t, 4, got.Result.AddedCount)

	pending, err := repo.ListJobsByStatus(ctx, domain.JobStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
