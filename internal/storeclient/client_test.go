package storeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/leadflow/internal/config"
	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/normalizer"
	"github.com/timmy/leadflow/internal/service"
	"github.com/timmy/leadflow/internal/store"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(&config.EndpointConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: 2 * time.Second})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCreateListAssignsServerID(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "T1", r.URL.Query().Get("tenantId"))
		var body domain.List
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body.ID = "srv-1"
		writeJSON(w, http.StatusCreated, body)
	})

	list := &domain.List{TenantID: "T1", Name: "Leads", Active: true}
	require.NoError(t, c.CreateList(context.Background(), list))
	assert.Equal(t, "srv-1", list.ID)
	assert.Equal(t, "Leads", list.Name)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		call   func(c *Client) error
		want   error
	}{
		{
			name:   "list conflict",
			status: http.StatusConflict,
			call: func(c *Client) error {
				return c.CreateList(context.Background(), &domain.List{TenantID: "T1", Name: "Leads"})
			},
			want: domain.ErrDuplicateList,
		},
		{
			name:   "contact conflict",
			status: http.StatusConflict,
			call: func(c *Client) error {
				return c.CreateContact(context.Background(), &domain.Contact{TenantID: "T1"})
			},
			want: domain.ErrDuplicateContact,
		},
		{
			name:   "missing list",
			status: http.StatusNotFound,
			call: func(c *Client) error {
				_, err := c.GetList(context.Background(), "T1", "nope")
				return err
			},
			want: domain.ErrNotFound,
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			call: func(c *Client) error {
				_, err := c.FindActiveContactsByEmail(context.Background(), "T1", "a@x.com")
				return err
			},
			want: domain.ErrStoreUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, map[string]string{"error": "x"})
			})
			assert.ErrorIs(t, tc.call(c), tc.want)
		})
	}
}

func TestTransportFailureIsStoreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(&config.EndpointConfig{BaseURL: url, Timeout: time.Second})
	_, err := c.ListLists(context.Background(), "T1", false)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestGetListRejectsForeignTenant(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.List{ID: "l-1", TenantID: "T2", Name: "Leads", Active: true})
	})
	_, err := c.GetList(context.Background(), "T1", "l-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContactFiltersAndDedupeKey(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			seen = append(seen, q.Get("where[dedupeKey]"), q.Get("where[active]"), q.Get("contains[q]"), q.Get("limit"))
			writeJSON(w, http.StatusOK, map[string]interface{}{"data": []domain.Contact{{ID: "c-1", TenantID: "T1"}}})
		case http.MethodPost:
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			seen = append(seen, body["dedupeKey"].(string))
			writeJSON(w, http.StatusCreated, map[string]string{"id": "c-2"})
		}
	})

	found, err := c.FindActiveContactsByEmail(context.Background(), "T1", " A@X.com")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = c.ListContacts(context.Background(), "T1", store.ContactFilter{Contains: "acme", Limit: 10})
	require.NoError(t, err)

	key := "a@x.com"
	contact := &domain.Contact{TenantID: "T1", Email: &key, DedupeKey: &key}
	require.NoError(t, c.CreateContact(context.Background(), contact))
	assert.Equal(t, "c-2", contact.ID)

	assert.Equal(t, []string{"a@x.com", "true", "", "", "", "", "acme", "10", "a@x.com"}, seen)
}

func TestFindActiveListsByNameIsCaseSensitive(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Leads", r.URL.Query().Get("where[name]"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": []domain.List{
			{ID: "1", TenantID: "T1", Name: "Leads", Active: true},
			{ID: "2", TenantID: "T1", Name: "leads", Active: true},
		}})
	})
	lists, err := c.FindActiveListsByName(context.Background(), "T1", "Leads")
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "1", lists[0].ID)
}

// exactMatchStore is a contact collection that compares where[field] filters
// byte for byte against the stored JSON, as a plain REST store does.
type exactMatchStore struct {
	mu       sync.Mutex
	contacts []map[string]interface{}
}

func (s *exactMatchStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := r.URL.Query()

	switch r.Method {
	case http.MethodPost:
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		body["id"] = fmt.Sprintf("c-%d", len(s.contacts)+1)
		body["tenantId"] = q.Get("tenantId")
		s.contacts = append(s.contacts, body)
		writeJSON(w, http.StatusCreated, body)
	case http.MethodGet:
		out := []map[string]interface{}{}
	next:
		for _, contact := range s.contacts {
			if contact["tenantId"] != q.Get("tenantId") {
				continue
			}
			for key, values := range q {
				if !strings.HasPrefix(key, "where[") {
					continue
				}
				field := strings.TrimSuffix(strings.TrimPrefix(key, "where["), "]")
				if fmt.Sprint(contact[field]) != values[0] {
					continue next
				}
			}
			out = append(out, contact)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": out})
	}
}

func TestReingestingMixedCaseEmailIsDuplicate(t *testing.T) {
	remote := &exactMatchStore{}
	c := newClient(t, remote.ServeHTTP)
	engine := service.NewDedupEngine(c, time.Second)
	list := &domain.List{ID: "l-1", TenantID: "T1", Name: "Leads", Active: true}
	records := []normalizer.RawRecord{{"Email": "Alice@X.com"}}

	first, err := engine.Ingest(context.Background(), list, records, "T1", service.IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.AddedCount)

	second, err := engine.Ingest(context.Background(), list, records, "T1", service.IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.AddedCount)
	assert.Equal(t, 1, second.DuplicateCount)

	require.Len(t, remote.contacts, 1)
	assert.Equal(t, "Alice@X.com", remote.contacts[0]["email"])
	assert.Equal(t, "alice@x.com", remote.contacts[0]["dedupeKey"])
}

func TestErrorBodyTruncatedOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("é", 150)
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(body))
	})

	_, err := c.GetList(context.Background(), "T1", "l-1")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.Contains(t, err.Error(), strings.Repeat("é", 100)+"...")

	assert.Equal(t, "ab...", truncate("abé", 3))
	assert.Equal(t, "abé", truncate("abé", 4))
}
