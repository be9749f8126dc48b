package service

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timmy/leadflow/internal/config"
	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/normalizer"
	"github.com/timmy/leadflow/internal/repository"
	"github.com/timmy/leadflow/internal/store"
)

type testEnv struct {
	store *repository.SQLStore
	jobs  *repository.JobRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
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
	return &testEnv{
		store: repository.NewSQLStore(db, 5*time.Second),
		jobs:  repository.NewJobRepository(db, 5*time.Second),
	}
}

func mustList(t *testing.T, s store.ListStore, tenantID, name string) *domain.List {
	t.Helper()
	list, err := NewListService(s).ResolveOrCreate(context.Background(), tenantID, domain.ListSelection{NewListName: name})
	require.NoError(t, err)
	return list
}

func rec(kv ...string) normalizer.RawRecord {
	r := normalizer.RawRecord{}
	for i := 0; i+1 < len(kv); i += 2 {
		r[kv[i]] = kv[i+1]
	}
	return r
}

// staticNormalizer returns fixed records or a fixed error.
type staticNormalizer struct {
	records []normalizer.RawRecord
	err     error
}

func (n staticNormalizer) Normalize(ctx context.Context, fileName string, raw []byte) ([]normalizer.RawRecord, error) {
	return n.records, n.err
}

// blockingNormalizer waits for its context to end.
type blockingNormalizer struct {
	entered chan struct{}
}

func (n blockingNormalizer) Normalize(ctx context.Context, fileName string, raw []byte) ([]normalizer.RawRecord, error) {
	close(n.entered)
	<-ctx.Done()
	return nil, ctx.Err()
}

// faultStore wraps a store and lets a test intercept contact calls.
type faultStore struct {
	store.Store
	mu           sync.Mutex
	creates      int
	failCreateAt map[int]error // 1-based create call -> error
	failLookup   map[string]error
	afterCreate  func(n int)
	beforeCreate func()
	afterLookup  func()
}

func (f *faultStore) FindActiveContactsByEmail(ctx context.Context, tenantID, email string) ([]domain.Contact, error) {
	if err, ok := f.failLookup[email]; ok {
		return nil, err
	}
	contacts, err := f.Store.FindActiveContactsByEmail(ctx, tenantID, email)
	if f.afterLookup != nil {
		f.afterLookup()
	}
	return contacts, err
}

func (f *faultStore) CreateContact(ctx context.Context, contact *domain.Contact) error {
	f.mu.Lock()
	f.creates++
	n := f.creates
	f.mu.Unlock()

	if err, ok := f.failCreateAt[n]; ok {
		return err
	}
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	err := f.Store.CreateContact(ctx, contact)
	if f.afterCreate != nil {
		f.afterCreate(n)
	}
	return err
}

// memoryObjects is an in-memory storage.ObjectStorage.
type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (m *memoryObjects) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}

func (m *memoryObjects) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
