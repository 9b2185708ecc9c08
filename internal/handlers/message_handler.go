package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"whatsapp-api/internal/logx"
	"whatsapp-api/internal/middleware"
	"whatsapp-api/internal/models"
	"whatsapp-api/internal/session"
	"whatsapp-api/internal/storage"
	"whatsapp-api/pkg/response"
)

// MessageHandler serves the message read/send/delete surface of spec §6,
// built directly on storage.Gateway for reads and on the session
// supervisor's live adapter for outbound sends.
type MessageHandler struct {
	supervisor *session.Supervisor
	store      *storage.Gateway
	log        *logx.Logger
}

func NewMessageHandler(supervisor *session.Supervisor, store *storage.Gateway, log *logx.Logger) *MessageHandler {
	return &MessageHandler{supervisor: supervisor, store: store, log: log}
}

// ListMessages handles GET /messages, filterable by chatId/sessionId.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	q := h.store.DB().WithContext(c.Request.Context()).
		Where("team_id = ?", tc.TeamID)

	if chatID := c.Query("chatId"); chatID != "" {
		q = q.Where("chat_id = ?", chatID)
	}
	if sessID := c.Query("sessionId"); sessID != "" {
		id, err := uuid.Parse(sessID)
		if err != nil {
			response.BadRequest(c, "invalid sessionId")
			return
		}
		q = q.Where("session_id = ?", id)
	}

	page := pageFromQuery(c)
	var total int64
	if err := q.Model(&models.Message{}).Count(&total).Error; err != nil {
		response.Error(c, err)
		return
	}

	var msgs []models.Message
	if err := q.Order("timestamp desc").Offset(page.Offset()).Limit(page.Limit()).Find(&msgs).Error; err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, msgs, page.Page, page.PerPage, total)
}

// GetMessage handles GET /messages/:id.
func (h *MessageHandler) GetMessage(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}
	response.Success(c, msg)
}

type sendMessageRequest struct {
	SessionID uuid.UUID `json:"session_id" binding:"required"`
	To        string    `json:"to" binding:"required"`
	Body      string    `json:"body" binding:"required"`
}

// SendMessage handles POST /messages.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	info, ok := h.supervisor.GetSession(req.SessionID)
	if !ok || info.TeamID != tc.TeamID {
		response.NotFound(c, "session not found")
		return
	}
	if !info.Adapter.IsReady() {
		response.UnprocessableEntity(c, "session is not connected")
		return
	}

	if err := info.Adapter.SendMessage(c.Request.Context(), req.To, req.Body); err != nil {
		h.log.Error("send message on session %s: %v", req.SessionID, err)
		response.Error(c, err)
		return
	}

	msg := &models.Message{
		TeamID:      tc.TeamID,
		SessionID:   req.SessionID,
		WAMessageID: uuid.NewString(),
		Direction:   models.DirectionOutbound,
		ToPhone:     req.To,
		ChatID:      req.To,
		Type:        models.MessageTypeText,
		Body:        &req.Body,
		Timestamp:   time.Now(),
	}
	if err := h.store.DB().WithContext(c.Request.Context()).Create(msg).Error; err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, msg)
}

// DeleteMessage handles DELETE /messages/:id.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}
	if err := h.store.DB().WithContext(c.Request.Context()).Delete(msg).Error; err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkRead handles POST /messages/:id/read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}
	msg.MarkRead()
	if err := h.store.DB().WithContext(c.Request.Context()).Save(msg).Error; err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

func (h *MessageHandler) loadMessage(c *gin.Context) (*models.Message, bool) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid message id")
		return nil, false
	}

	var msg models.Message
	err = h.store.DB().WithContext(c.Request.Context()).
		Where("id = ? AND team_id = ?", id, tc.TeamID).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.NotFound(c, "message not found")
		return nil, false
	}
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return &msg, true
}
