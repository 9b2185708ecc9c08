package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"whatsapp-api/internal/middleware"
	"whatsapp-api/internal/models"
	"whatsapp-api/internal/storage"
	"whatsapp-api/pkg/response"
)

// ConversationHandler serves the conversation thread surface of spec §6.
type ConversationHandler struct {
	store *storage.Gateway
}

func NewConversationHandler(store *storage.Gateway) *ConversationHandler {
	return &ConversationHandler{store: store}
}

// ListConversations handles GET /conversations, filterable by status[],
// stage[], and a free-text q against contact name/phone.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	q := h.store.DB().WithContext(c.Request.Context()).Where("team_id = ?", tc.TeamID)
	if statuses := c.QueryArray("status"); len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if stages := c.QueryArray("stage"); len(stages) > 0 {
		q = q.Where("stage IN ?", stages)
	}
	if term := c.Query("q"); term != "" {
		like := "%" + term + "%"
		q = q.Where("contact_name ILIKE ? OR contact_phone ILIKE ?", like, like)
	}

	page := pageFromQuery(c)
	var total int64
	if err := q.Model(&models.Conversation{}).Count(&total).Error; err != nil {
		response.Error(c, err)
		return
	}

	var conversations []models.Conversation
	if err := q.Order("last_message_at desc").Offset(page.Offset()).Limit(page.Limit()).Find(&conversations).Error; err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, conversations, page.Page, page.PerPage, total)
}

// GetConversation handles GET /conversations/:id, including its messages.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conv, ok := h.loadConversation(c)
	if !ok {
		return
	}

	var msgs []models.Message
	if err := h.store.DB().WithContext(c.Request.Context()).
		Where("conversation_id = ?", conv.ID).
		Order("timestamp asc").
		Find(&msgs).Error; err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"conversation": conv, "messages": msgs})
}

type updateConversationRequest struct {
	Status     *models.ConversationStatus `json:"status"`
	Stage      *models.ConversationStage  `json:"stage"`
	AssignedTo *string                    `json:"assigned_to"`
	Metadata   models.JSONMap             `json:"metadata"`
}

// UpdateConversation handles PATCH /conversations/:id.
func (h *ConversationHandler) UpdateConversation(c *gin.Context) {
	conv, ok := h.loadConversation(c)
	if !ok {
		return
	}

	var req updateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if req.Stage != nil {
		conv.SetStage(*req.Stage)
	}
	if req.Status != nil {
		conv.Status = *req.Status
	}
	if req.AssignedTo != nil {
		conv.AssignedTo = req.AssignedTo
	}
	for k, v := range req.Metadata {
		if conv.Metadata == nil {
			conv.Metadata = models.JSONMap{}
		}
		conv.Metadata[k] = v
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Save(conv).Error; err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, conv)
}

// CloseConversation handles POST /conversations/:id/close.
func (h *ConversationHandler) CloseConversation(c *gin.Context) {
	h.setStatus(c, models.ConversationStatusClosed)
}

// ArchiveConversation handles POST /conversations/:id/archive.
func (h *ConversationHandler) ArchiveConversation(c *gin.Context) {
	h.setStatus(c, models.ConversationStatusArchived)
}

func (h *ConversationHandler) setStatus(c *gin.Context, status models.ConversationStatus) {
	conv, ok := h.loadConversation(c)
	if !ok {
		return
	}
	conv.Status = status
	if err := h.store.DB().WithContext(c.Request.Context()).Save(conv).Error; err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, conv)
}

func (h *ConversationHandler) loadConversation(c *gin.Context) (*models.Conversation, bool) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid conversation id")
		return nil, false
	}

	var conv models.Conversation
	err = h.store.DB().WithContext(c.Request.Context()).
		Where("id = ? AND team_id = ?", id, tc.TeamID).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.NotFound(c, "conversation not found")
		return nil, false
	}
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return &conv, true
}
