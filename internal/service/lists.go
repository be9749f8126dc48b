package service

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/logger"
	"github.com/timmy/leadflow/internal/store"
)

const duplicateListHint = "choose a different name or import into the existing list"

// ListService resolves and maintains a tenant's lists.
type ListService struct {
	store store.ListStore
}

func NewListService(s store.ListStore) *ListService {
	return &ListService{store: s}
}

// ResolveOrCreate returns the list named by sel. An existing list must be active and
// owned by tenantID. A new name must not match any active list of the tenant exactly;
// the duplicate check completes before anything is written.
func (s *ListService) ResolveOrCreate(ctx context.Context, tenantID string, sel domain.ListSelection) (*domain.List, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	if !sel.IsNew() {
		return s.getActive(ctx, tenantID, strings.TrimSpace(sel.ExistingListID))
	}

	name := strings.TrimSpace(sel.NewListName)
	if err := s.ensureNameFree(ctx, tenantID, name); err != nil {
		return nil, err
	}

	list := &domain.List{
		TenantID: tenantID,
		Name:     name,
		Tags:     domain.NewTagSet(sel.Tags),
		Active:   true,
	}
	if err := s.store.CreateList(ctx, list); err != nil {
		if errors.Is(err, domain.ErrDuplicateList) {
			return nil, duplicateList(name)
		}
		return nil, err
	}

	logger.CtxInfo(logger.SetListID(ctx, list.ID), "Created list %q", list.Name)
	return list, nil
}

// List returns the tenant's lists, newest first.
func (s *ListService) List(ctx context.Context, tenantID string, includeInactive bool) ([]domain.List, error) {
	return s.store.ListLists(ctx, tenantID, includeInactive)
}

// Get returns one of the tenant's lists, active or not.
func (s *ListService) Get(ctx context.Context, tenantID, listID string) (*domain.List, error) {
	return s.store.GetList(ctx, tenantID, listID)
}

// Update renames and/or retags an active list. A nil argument leaves that attribute alone.
func (s *ListService) Update(ctx context.Context, tenantID, listID string, name *string, tags []string) (*domain.List, error) {
	list, err := s.getActive(ctx, tenantID, listID)
	if err != nil {
		return nil, err
	}

	if name != nil {
		newName := strings.TrimSpace(*name)
		if newName == "" {
			return nil, domain.Validationf("list name must not be blank")
		}
		if newName != list.Name {
			if err := s.ensureNameFree(ctx, tenantID, newName); err != nil {
				return nil, err
			}
			list.Name = newName
		}
	}
	if tags != nil {
		list.Tags = domain.NewTagSet(tags)
	}

	if err := s.store.UpdateList(ctx, list); err != nil {
		if errors.Is(err, domain.ErrDuplicateList) {
			return nil, duplicateList(list.Name)
		}
		return nil, err
	}
	return list, nil
}

// Deactivate soft-deletes a list. Deactivating an inactive list is a no-op.
func (s *ListService) Deactivate(ctx context.Context, tenantID, listID string) (*domain.List, error) {
	list, err := s.store.GetList(ctx, tenantID, listID)
	if err != nil {
		return nil, err
	}
	if !list.Active {
		return list, nil
	}

	list.Active = false
	if err := s.store.UpdateList(ctx, list); err != nil {
		return nil, err
	}
	logger.CtxInfo(logger.SetListID(ctx, list.ID), "Deactivated list %q", list.Name)
	return list, nil
}

func (s *ListService) getActive(ctx context.Context, tenantID, listID string) (*domain.List, error) {
	list, err := s.store.GetList(ctx, tenantID, listID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.Wrapf(domain.ErrNotFound, "list %s", listID)
		}
		return nil, err
	}
	if !list.Active || list.TenantID != tenantID {
		return nil, errors.Wrapf(domain.ErrNotFound, "list %s", listID)
	}
	return list, nil
}

func (s *ListService) ensureNameFree(ctx context.Context, tenantID, name string) error {
	existing, err := s.store.FindActiveListsByName(ctx, tenantID, name)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return duplicateList(name)
	}
	return nil
}

func duplicateList(name string) error {
	return errors.WithHint(errors.Wrapf(domain.ErrDuplicateList, "list %q", name), duplicateListHint)
}
