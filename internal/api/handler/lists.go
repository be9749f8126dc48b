package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/service"
	"github.com/timmy/leadflow/internal/store"
)

const defaultContactPage = 50

// ListHandler handles list management and contact browsing.
type ListHandler struct {
	lists    *service.ListService
	contacts store.ContactStore
}

// NewListHandler creates a list handler.
func NewListHandler(lists *service.ListService, contacts store.ContactStore) *ListHandler {
	return &ListHandler{lists: lists, contacts: contacts}
}

// CreateListRequest is the body of POST .../lists.
type CreateListRequest struct {
	Name string   `json:"name" binding:"required"`
	Tags []string `json:"tags"`
}

// UpdateListRequest is the body of PATCH .../lists/:id. Omitted fields are unchanged.
type UpdateListRequest struct {
	Name *string  `json:"name"`
	Tags []string `json:"tags"`
}

// ListsResponse wraps a tenant's lists.
type ListsResponse struct {
	Lists []domain.List `json:"lists"`
	Total int           `json:"total"`
}

// ContactsResponse is one page of contacts.
type ContactsResponse struct {
	Contacts []domain.Contact `json:"contacts"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// List handles GET /api/v1/tenants/:tenant_id/lists?include_inactive=.
func (h *ListHandler) List(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))
	lists, err := h.lists.List(c.Request.Context(), c.Param("tenant_id"), includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	if lists == nil {
		lists = []domain.List{}
	}
	c.JSON(http.StatusOK, ListsResponse{Lists: lists, Total: len(lists)})
}

// Create handles POST /api/v1/tenants/:tenant_id/lists.
func (h *ListHandler) Create(c *gin.Context) {
	var req CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid request: %v", err)
		return
	}

	list, err := h.lists.ResolveOrCreate(c.Request.Context(), c.Param("tenant_id"), domain.ListSelection{
		NewListName: req.Name,
		Tags:        req.Tags,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

// Get handles GET /api/v1/tenants/:tenant_id/lists/:id.
func (h *ListHandler) Get(c *gin.Context) {
	list, err := h.lists.Get(c.Request.Context(), c.Param("tenant_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Update handles PATCH /api/v1/tenants/:tenant_id/lists/:id.
func (h *ListHandler) Update(c *gin.Context) {
	var req UpdateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid request: %v", err)
		return
	}
	if req.Name == nil && req.Tags == nil {
		respondValidation(c, "nothing to update")
		return
	}

	list, err := h.lists.Update(c.Request.Context(), c.Param("tenant_id"), c.Param("id"), req.Name, req.Tags)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Delete handles DELETE /api/v1/tenants/:tenant_id/lists/:id. Lists are deactivated,
// never removed.
func (h *ListHandler) Delete(c *gin.Context) {
	list, err := h.lists.Deactivate(c.Request.Context(), c.Param("tenant_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Contacts handles GET /api/v1/tenants/:tenant_id/lists/:id/contacts?email=&q=&limit=&offset=.
func (h *ListHandler) Contacts(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultContactPage)))
	if err != nil || limit < 1 {
		respondValidation(c, "limit must be a positive integer")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		respondValidation(c, "offset must be a non-negative integer")
		return
	}

	list, err := h.lists.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	contacts, err := h.contacts.ListContacts(ctx, tenantID, store.ContactFilter{
		ListID:   list.ID,
		Email:    c.Query("email"),
		Contains: c.Query("q"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	c.JSON(http.StatusOK, ContactsResponse{Contacts: contacts, Limit: limit, Offset: offset})
}
