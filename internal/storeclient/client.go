// Package storeclient talks to a remote list/contact store service over HTTP.
//
// Wire contract: JSON bodies, tenant passed as the tenantId query parameter, filters as
// where[field]=value (exact) and contains[field]=value (substring). Collections are
// wrapped as {"data": [...]}. 404 means not found, 409 a uniqueness conflict.
package storeclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/leadflow/internal/config"
	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/store"
)

// Client implements store.Store against the remote store service.
type Client struct {
	client *resty.Client
}

var _ store.Store = (*Client)(nil)

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

// contactPayload carries the dedupe key the domain type keeps out of its JSON form.
type contactPayload struct {
	domain.Contact
	DedupeKey *string `json:"dedupeKey,omitempty"`
}

// New creates a Client for cfg.
func New(cfg *config.EndpointConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &Client{client: client}
}

func (c *Client) CreateList(ctx context.Context, list *domain.List) error {
	var created domain.List
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("tenantId", list.TenantID).
		SetBody(list).
		SetResult(&created).
		Post("/lists")
	if err := check(resp, err, domain.ErrDuplicateList); err != nil {
		return err
	}
	*list = created
	return nil
}

func (c *Client) GetList(ctx context.Context, tenantID, listID string) (*domain.List, error) {
	var list domain.List
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("tenantId", tenantID).
		SetPathParam("id", listID).
		SetResult(&list).
		Get("/lists/{id}")
	if err := check(resp, err, nil); err != nil {
		return nil, err
	}
	// never hand out another tenant's list, whatever the server did
	if list.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return &list, nil
}

func (c *Client) FindActiveListsByName(ctx context.Context, tenantID, name string) ([]domain.List, error) {
	var out listEnvelope[domain.List]
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"tenantId":      tenantID,
			"where[name]":   name,
			"where[active]": "true",
		}).
		SetResult(&out).
		Get("/lists")
	if err := check(resp, err, nil); err != nil {
		return nil, err
	}
	// the server matches exactly but case handling is its choice; names are case-sensitive here
	matched := out.Data[:0]
	for _, l := range out.Data {
		if l.Name == name && l.Active {
			matched = append(matched, l)
		}
	}
	return matched, nil
}

func (c *Client) ListLists(ctx context.Context, tenantID string, includeInactive bool) ([]domain.List, error) {
	req := c.client.R().SetContext(ctx).SetQueryParam("tenantId", tenantID)
	if !includeInactive {
		req.SetQueryParam("where[active]", "true")
	}
	var out listEnvelope[domain.List]
	resp, err := req.SetResult(&out).Get("/lists")
	if err := check(resp, err, nil); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) UpdateList(ctx context.Context, list *domain.List) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("tenantId", list.TenantID).
		SetPathParam("id", list.ID).
		SetBody(map[string]interface{}{
			"name":   list.Name,
			"tags":   list.Tags,
			"active": list.Active,
		}).
		Patch("/lists/{id}")
	return check(resp, err, domain.ErrDuplicateList)
}

func (c *Client) FindActiveContactsByEmail(ctx context.Context, tenantID, email string) ([]domain.Contact, error) {
	return c.ListContacts(ctx, tenantID, store.ContactFilter{Email: email, ActiveOnly: true})
}

func (c *Client) CreateContact(ctx context.Context, contact *domain.Contact) error {
	var created domain.Contact
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("tenantId", contact.TenantID).
		SetBody(contactPayload{Contact: *contact, DedupeKey: contact.DedupeKey}).
		SetResult(&created).
		Post("/contacts")
	if err := check(resp, err, domain.ErrDuplicateContact); err != nil {
		return err
	}
	if created.ID != "" {
		contact.ID = created.ID
	}
	return nil
}

func (c *Client) ListContacts(ctx context.Context, tenantID string, filter store.ContactFilter) ([]domain.Contact, error) {
	params := map[string]string{"tenantId": tenantID}
	if filter.ListID != "" {
		params["where[listId]"] = filter.ListID
	}
	if filter.Email != "" {
		// the store keeps email as written, so exact matches go through the dedupe key
		params["where[dedupeKey]"] = domain.EmailKey(filter.Email)
	}
	if filter.Contains != "" {
		params["contains[q]"] = filter.Contains
	}
	if filter.ActiveOnly {
		params["where[active]"] = "true"
	}
	if filter.Limit > 0 {
		params["limit"] = strconv.Itoa(filter.Limit)
	}
	if filter.Offset > 0 {
		params["offset"] = strconv.Itoa(filter.Offset)
	}

	var out listEnvelope[domain.Contact]
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get("/contacts")
	if err := check(resp, err, nil); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// check maps transport failures and status codes onto the domain taxonomy.
// conflict is returned for 409 when non-nil.
func check(resp *resty.Response, err error, conflict error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	switch code := resp.StatusCode(); {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return domain.ErrNotFound
	case code == http.StatusConflict && conflict != nil:
		return conflict
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrStoreUnavailable, code, truncate(resp.String(), 200))
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
