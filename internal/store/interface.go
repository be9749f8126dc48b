// Package store defines the tenant-scoped persistence contracts used by the intake pipeline.
//
// Two implementations exist: repository (SQL through gorm) and storeclient (a remote
// store service over HTTP).
package store

import (
	"context"

	"github.com/timmy/leadflow/internal/domain"
)

// ContactFilter narrows a contact listing. Empty fields are ignored.
type ContactFilter struct {
	ListID     string
	Email      string // exact match on the dedupe key derived from the email
	Contains   string // substring match on email or any field value
	ActiveOnly bool
	Limit      int
	Offset     int
}

// ListStore persists lists.
type ListStore interface {
	// CreateList inserts a list and fills its server-assigned fields.
	// Returns domain.ErrDuplicateList when an active list with the same name exists.
	CreateList(ctx context.Context, list *domain.List) error

	// GetList fetches a list owned by tenantID.
	// Returns domain.ErrNotFound when it does not exist for that tenant.
	GetList(ctx context.Context, tenantID, listID string) (*domain.List, error)

	// FindActiveListsByName returns active lists whose name equals name exactly.
	FindActiveListsByName(ctx context.Context, tenantID, name string) ([]domain.List, error)

	// ListLists returns the tenant's lists, newest first.
	ListLists(ctx context.Context, tenantID string, includeInactive bool) ([]domain.List, error)

	// UpdateList saves name, tags and active flag.
	// Returns domain.ErrDuplicateList when the change collides with another active list.
	UpdateList(ctx context.Context, list *domain.List) error
}

// ContactStore persists contacts.
type ContactStore interface {
	// FindActiveContactsByEmail returns active contacts of tenantID with the given email.
	FindActiveContactsByEmail(ctx context.Context, tenantID, email string) ([]domain.Contact, error)

	// CreateContact inserts a contact.
	// Returns domain.ErrDuplicateContact when the (tenant, email) constraint rejects it.
	CreateContact(ctx context.Context, contact *domain.Contact) error

	// ListContacts returns the tenant's contacts matching filter.
	ListContacts(ctx context.Context, tenantID string, filter ContactFilter) ([]domain.Contact, error)
}

// Store combines the list and contact contracts.
type Store interface {
	ListStore
	ContactStore
}

// JobStore persists job records for the job registry.
type JobStore interface {
	SaveJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	ListJobs(ctx context.Context, tenantID string, jobType domain.JobType) ([]domain.Job, error)
	ListJobsByStatus(ctx context.Context, status domain.JobStatus) ([]domain.Job, error)
}
