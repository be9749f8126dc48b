package service

import (
	"sort"
	"strings"

	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/normalizer"
)

// fieldMapping lists the source spellings accepted for one canonical field, in
// order of preference.
type fieldMapping struct {
	canonical string
	accepted  []string
}

var contactFieldMappings = []fieldMapping{
	{domain.FieldFullName, []string{"Full Name", "Full name", "full_name", "fullName", "Name", "name"}},
	{domain.FieldFirstName, []string{"First Name", "First name", "first_name", "firstName", "Given Name"}},
	{domain.FieldLastName, []string{"Last Name", "Last name", "last_name", "lastName", "Surname", "Family Name"}},
	{domain.FieldTitle, []string{"Title", "Job Title", "job_title", "Position", "Role"}},
	{domain.FieldCompany, []string{"Company", "Company Name", "company_name", "Organization", "Organisation", "Employer"}},
	{domain.FieldLocation, []string{"Location", "City", "Address", "Region", "Country"}},
	{domain.FieldEmail, []string{"Email", "E-mail", "Email Address", "email_address", "Work Email", "Mail"}},
	{domain.FieldPhone, []string{"Phone", "Phone Number", "phone_number", "Mobile", "Telephone", "Tel"}},
	{domain.FieldLinkedIn, []string{"LinkedIn", "Linkedin", "LinkedIn URL", "LinkedIn Profile", "linkedin_url"}},
	{domain.FieldTwitter, []string{"Twitter", "Twitter Handle", "twitter_handle", "X", "X Handle"}},
	{domain.FieldFacebook, []string{"Facebook", "Facebook URL", "facebook_url"}},
	{domain.FieldInstagram, []string{"Instagram", "Instagram Handle", "instagram_handle"}},
	{domain.FieldGitHub, []string{"GitHub", "Github", "GitHub URL", "github_url"}},
	{domain.FieldWebsite, []string{"Website", "Web Site", "URL", "Homepage"}},
}

// foldKey lower-cases a key and drops spaces, underscores and hyphens, so that
// "Full Name", "full_name" and "FULL-NAME" compare equal.
func foldKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range strings.ToLower(key) {
		switch r {
		case ' ', '_', '-', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// canonicalize resolves every canonical field of rec. Exact spellings win over folded
// matches; a missing field is "". Values are trimmed.
func canonicalize(rec normalizer.RawRecord) map[string]string {
	// sorted so that two raw keys folding to the same form resolve deterministically
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	folded := make(map[string]string, len(rec))
	for _, k := range keys {
		fk := foldKey(k)
		if _, ok := folded[fk]; !ok {
			folded[fk] = rec[k]
		}
	}

	out := make(map[string]string, len(contactFieldMappings))
	for _, m := range contactFieldMappings {
		out[m.canonical] = strings.TrimSpace(resolveField(rec, folded, m.accepted))
	}
	return out
}

func resolveField(rec normalizer.RawRecord, folded map[string]string, accepted []string) string {
	for _, key := range accepted {
		if v, ok := rec[key]; ok {
			return v
		}
	}
	for _, key := range accepted {
		if v, ok := folded[foldKey(key)]; ok {
			return v
		}
	}
	return ""
}
