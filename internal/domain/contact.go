package domain

import (
	"strings"
	"time"
)

// NoEmailSentinel is the placeholder some normalization outputs use for a missing email.
const NoEmailSentinel = "N/A"

// ContactSourceCSV marks contacts created by the upload pipeline.
const ContactSourceCSV = "csv_import"

// Canonical contact field keys.
const (
	FieldFullName  = "fullName"
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldTitle     = "title"
	FieldCompany   = "company"
	FieldLocation  = "location"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldLinkedIn  = "linkedin"
	FieldTwitter   = "twitter"
	FieldFacebook  = "facebook"
	FieldInstagram = "instagram"
	FieldGitHub    = "github"
	FieldWebsite   = "website"
)

// Contact is one ingested prospect.
// DedupeKey carries the normalized email for pipeline contacts with a usable email;
// the unique index on (tenant_id, dedupe_key) covers active rows only and ignores NULLs.
type Contact struct {
	ID        string      `gorm:"type:text;primaryKey" json:"id"`
	TenantID  string      `gorm:"type:text;not null;index;uniqueIndex:idx_contacts_tenant_dedupe" json:"tenantId"`
	ListID    string      `gorm:"type:text;not null;index" json:"listId"`
	ListName  string      `gorm:"type:text" json:"listName"`
	Email     *string     `gorm:"type:text;index" json:"email"`
	Fields    StringMap   `gorm:"type:text" json:"fields"`
	Tags      StringArray `gorm:"type:text" json:"tags"`
	Active    bool        `gorm:"not null;default:true" json:"active"`
	DedupeKey *string     `gorm:"type:text;uniqueIndex:idx_contacts_tenant_dedupe,where:active = true" json:"-"`
	Source    string      `gorm:"type:text" json:"source"`
	CreatedAt time.Time   `json:"createdAt"`
}

// TableName returns the database table name for Contact.
func (Contact) TableName() string {
	return "contacts"
}

// UsableEmail reports whether email can take part in deduplication:
// not blank and not the N/A sentinel.
func UsableEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && !strings.EqualFold(email, NoEmailSentinel)
}

// EmailKey is the comparison form of an email for deduplication.
func EmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
