package domain

import (
	"strings"
	"time"
)

// List is a named, tenant-owned grouping of contacts.
// Lists are never deleted; deactivation clears ActiveName so the name can be reused.
type List struct {
	ID       string      `gorm:"type:text;primaryKey" json:"id"`
	TenantID string      `gorm:"type:text;not null;index;uniqueIndex:idx_lists_tenant_active_name" json:"tenantId"`
	Name     string      `gorm:"type:text;not null" json:"name"`
	Tags     StringArray `gorm:"type:text" json:"tags"`
	Active   bool        `gorm:"not null;default:true" json:"active"`
	// ActiveName mirrors Name while the list is active and is NULL otherwise.
	ActiveName *string   `gorm:"type:text;uniqueIndex:idx_lists_tenant_active_name" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName returns the database table name for List.
func (List) TableName() string {
	return "lists"
}

// SyncActiveName keeps the uniqueness column in step with Active and Name.
func (l *List) SyncActiveName() {
	if l.Active {
		name := l.Name
		l.ActiveName = &name
		return
	}
	l.ActiveName = nil
}

// ListSelection names the target list of an ingestion: either an existing list
// or a new one to create.
type ListSelection struct {
	ExistingListID string   `json:"existingListId,omitempty"`
	NewListName    string   `json:"newListName,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// IsNew reports whether the selection asks for a new list.
func (s ListSelection) IsNew() bool {
	return strings.TrimSpace(s.NewListName) != ""
}

// Validate requires exactly one of ExistingListID and NewListName.
func (s ListSelection) Validate() error {
	hasExisting := strings.TrimSpace(s.ExistingListID) != ""
	hasNew := s.IsNew()
	switch {
	case hasExisting && hasNew:
		return Validationf("list selection must name either an existing list or a new list, not both")
	case !hasExisting && !hasNew:
		return Validationf("list selection is required")
	}
	return nil
}

// AsParams renders the selection for a job's params payload.
func (s ListSelection) AsParams() map[string]interface{} {
	out := map[string]interface{}{}
	if s.ExistingListID != "" {
		out["existingListId"] = s.ExistingListID
	}
	if s.IsNew() {
		out["newListName"] = s.NewListName
		out["tags"] = NewTagSet(s.Tags)
	}
	return out
}
