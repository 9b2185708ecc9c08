package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whatsapp-api/internal/middleware"
	"whatsapp-api/internal/models"
	"whatsapp-api/internal/storage"
	"whatsapp-api/pkg/response"
)

// ContactHandler serves the contact directory surface of spec §6.
type ContactHandler struct {
	store *storage.Gateway
}

func NewContactHandler(store *storage.Gateway) *ContactHandler {
	return &ContactHandler{store: store}
}

// ListContacts handles GET /contacts.
func (h *ContactHandler) ListContacts(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	q := h.store.DB().WithContext(c.Request.Context()).Where("team_id = ?", tc.TeamID)
	if term := c.Query("q"); term != "" {
		like := "%" + term + "%"
		q = q.Where("name ILIKE ? OR phone_number ILIKE ?", like, like)
	}

	page := pageFromQuery(c)
	var total int64
	if err := q.Model(&models.Contact{}).Count(&total).Error; err != nil {
		response.Error(c, err)
		return
	}

	var contacts []models.Contact
	if err := q.Order("name asc").Offset(page.Offset()).Limit(page.Limit()).Find(&contacts).Error; err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, contacts, page.Page, page.PerPage, total)
}

// GetContact handles GET /contacts/:phone.
func (h *ContactHandler) GetContact(c *gin.Context) {
	contact, ok := h.loadContact(c)
	if !ok {
		return
	}
	response.Success(c, contact)
}

type updateContactRequest struct {
	Name     *string        `json:"name"`
	Metadata models.JSONMap `json:"metadata"`
}

// UpdateContact handles PATCH /contacts/:phone.
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	contact, ok := h.loadContact(c)
	if !ok {
		return
	}

	var req updateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Name != nil {
		contact.Name = req.Name
	}
	for k, v := range req.Metadata {
		if contact.Metadata == nil {
			contact.Metadata = models.JSONMap{}
		}
		contact.Metadata[k] = v
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Save(contact).Error; err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, contact)
}

func (h *ContactHandler) loadContact(c *gin.Context) (*models.Contact, bool) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return nil, false
	}
	phone := c.Param("phone")

	var contact models.Contact
	err := h.store.DB().WithContext(c.Request.Context()).
		Where("team_id = ? AND phone_number = ?", tc.TeamID, phone).
		First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.NotFound(c, "contact not found")
		return nil, false
	}
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return &contact, true
}
