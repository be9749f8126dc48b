package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/store"
)

const maxContactPage = 500

// ContactRepository stores contacts.
type ContactRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewContactRepository creates a ContactRepository whose calls are bounded by timeout.
func NewContactRepository(db *gorm.DB, timeout time.Duration) *ContactRepository {
	return &ContactRepository{db: db, timeout: timeout}
}

// FindActiveContactsByEmail matches the normalized email against dedupe_key, so only
// contacts written with a dedupe key are found.
func (r *ContactRepository) FindActiveContactsByEmail(ctx context.Context, tenantID, email string) ([]domain.Contact, error) {
	ctx, cancel := scoped(ctx, r.timeout)
	defer cancel()

	var contacts []domain.Contact
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ? AND dedupe_key = ?", tenantID, true, domain.EmailKey(email)).
		Find(&contacts).Error
	if err != nil {
		return nil, translate(err)
	}
	return contacts, nil
}

// CreateContact inserts contact. A conflict on (tenant_id, dedupe_key) inserts nothing
// and returns domain.ErrDuplicateContact.
func (r *ContactRepository) CreateContact(ctx context.Context, contact *domain.Contact) error {
	ctx, cancel := scoped(ctx, r.timeout)
	defer cancel()

	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	if contact.Tags == nil {
		contact.Tags = domain.StringArray{}
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(contact)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrDuplicateContact
	}
	return nil
}

// ListContacts returns the tenant's contacts matching filter, newest first.
func (r *ContactRepository) ListContacts(ctx context.Context, tenantID string, filter store.ContactFilter) ([]domain.Contact, error) {
	ctx, cancel := scoped(ctx, r.timeout)
	defer cancel()

	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.ListID != "" {
		query = query.Where("list_id = ?", filter.ListID)
	}
	if filter.Email != "" {
		query = query.Where("dedupe_key = ?", domain.EmailKey(filter.Email))
	}
	if filter.Contains != "" {
		like := "%" + strings.ToLower(filter.Contains) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(fields) LIKE ?", like, like)
	}
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxContactPage {
		limit = maxContactPage
	}

	var contacts []domain.Contact
	err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&contacts).Error
	if err != nil {
		return nil, translate(err)
	}
	return contacts, nil
}
