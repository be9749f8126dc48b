package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/timmy/leadflow/internal/domain"
)

// ListRepository stores lists.
type ListRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewListRepository creates a ListRepository whose calls are bounded by timeout.
func NewListRepository(db *gorm.DB, timeout time.Duration) *ListRepository {
	return &ListRepository{db: db, timeout: timeout}
}

// CreateList inserts list, assigning an id when missing.
func (r *ListRepository) CreateList(ctx context.Context, list *domain.List) error {
	ctx, cancel := scoped(ctx, r.timeout)
	defer cancel()

	if list.ID == "" {
		list.ID = uuid.New().String()
	}
	list.SyncActiveName()
	if list.Tags == nil {
		list.Tags = domain.StringArray{}
	}

	err := r.db.WithContext(ctx).Create(list).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateList
	}
	return translate(err)
}

// GetList fetches a list owned by tenantID.
func (r *ListRepository) GetList(ctx context.Context, tenantID, listID string) (*domain.List, error) {
	ctx, cancel := scoped(ctx, r.timeout)
	defer cancel()

	var list domain.List
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, listID).
		First(&list).Error
	if err != nil {
		return nil, translate(err)
	}
	return &list, nil
}

// FindActiveListsByName returns the tenant's active lists named exactly name.
func (r *ListRepository) FindActiveListsByName(ctx context.Context, tenantID, name string) ([]domain.List, error) {
	ctx, cancel := scoped(ctx, r.timeout)
	defer cancel()

	var lists []domain.List
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND name = ? AND active = ?", tenantID, name, true).
		Find(&lists).Error
	if err != nil {
		return nil, translate(err)
	}
	return lists, nil
}

// ListLists returns the tenant's lists, newest first.
func (r *ListRepository) ListLists(ctx context.Context, tenantID string, includeInactive bool) ([]domain.List, error) {
	ctx, cancel := scoped(ctx, r.timeout)
	defer cancel()

	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	var lists []domain.List
	if err := query.Order("created_at DESC").Find(&lists).Error; err != nil {
		return nil, translate(err)
	}
	return lists, nil
}

// UpdateList saves name, tags and the active flag.
func (r *ListRepository) UpdateList(ctx context.Context, list *domain.List) error {
	ctx, cancel := scoped(ctx, r.timeout)
	defer cancel()

	list.SyncActiveName()
	result := r.db.WithContext(ctx).
		Model(&domain.List{}).
		Where("tenant_id = ? AND id = ?", list.TenantID, list.ID).
		Updates(map[string]interface{}{
			"name":        list.Name,
			"tags":        list.Tags,
			"active":      list.Active,
			"active_name": list.ActiveName,
			"updated_at":  time.Now(),
		})
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateList
	}
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
