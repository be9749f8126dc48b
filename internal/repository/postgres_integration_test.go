//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/timmy/leadflow/internal/domain"
)

// startPostgres runs a throwaway postgres container and returns a migrated handle.
func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "leadflow",
				"POSTGRES_PASSWORD": "leadflow",
				"POSTGRES_DB":       "leadflow",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=leadflow password=leadflow dbname=leadflow sslmode=disable", host, port.Port())
	db, err := OpenPostgres(dsn, &gorm.Config{Logger: gormlogger.Discard, TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestPostgresConcurrentInsertsKeepOneContact(t *testing.T) {
	db := startPostgres(t)
	s := NewSQLStore(db, 5*time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "race@x.com"
			results[i] = s.CreateContact(ctx, &domain.Contact{
				TenantID: "T1", ListID: "l-1", Email: &key, DedupeKey: &key, Active: true,
			})
		}(i)
	}
	wg.Wait()

	added := 0
	for _, err := range results {
		if err == nil {
			added++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateContact)
	}
	assert.Equal(t, 1, added)
}

func TestPostgresListNameUniqueness(t *testing.T) {
	db := startPostgres(t)
	repo := NewListRepository(db, 5*time.Second)
	ctx := context.Background()

	require.NoError(t, repo.CreateList(ctx, &domain.List{TenantID: "T1", Name: "Leads", Active: true}))
	err := repo.CreateList(ctx, &domain.List{TenantID: "T1", Name: "Leads", Active: true})
	assert.ErrorIs(t, err, domain.ErrDuplicateList)
}
