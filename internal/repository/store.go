package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/timmy/leadflow/internal/store"
)

// SQLStore serves lists and contacts from the local database.
type SQLStore struct {
	*ListRepository
	*ContactRepository
}

var _ store.Store = (*SQLStore)(nil)
var _ store.JobStore = (*JobRepository)(nil)

// NewSQLStore builds the database-backed store with a per-call timeout.
func NewSQLStore(db *gorm.DB, timeout time.Duration) *SQLStore {
	return &SQLStore{
		ListRepository:    NewListRepository(db, timeout),
		ContactRepository: NewContactRepository(db, timeout),
	}
}
