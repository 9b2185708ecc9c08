package handlers

import (
	"errors"

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

// SessionHandler exposes the WhatsApp session lifecycle — creation,
// QR pairing, status, and teardown — per spec §6.
type SessionHandler struct {
	supervisor *session.Supervisor
	store      *storage.Gateway
	log        *logx.Logger
}

func NewSessionHandler(supervisor *session.Supervisor, store *storage.Gateway, log *logx.Logger) *SessionHandler {
	return &SessionHandler{supervisor: supervisor, store: store, log: log}
}

type createSessionRequest struct {
	Name  string  `json:"name" binding:"required"`
	Phone *string `json:"phone"`
}

// CreateSession handles POST /sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	sess, err := h.supervisor.CreateSession(c.Request.Context(), req.Name, req.Phone)
	if err != nil {
		h.log.Error("create session for team %s: %v", tc.TeamID, err)
		response.Error(c, err)
		return
	}

	response.Created(c, sess)
}

// ListSessions handles GET /sessions.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var sessions []models.Session
	if err := h.store.DB().WithContext(c.Request.Context()).
		Where("team_id = ?", tc.TeamID).
		Order("created_at desc").
		Find(&sessions).Error; err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, sessions)
}

// GetStatus handles GET /sessions/:id/status.
func (h *SessionHandler) GetStatus(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	response.Success(c, gin.H{
		"id":          sess.ID,
		"status":      sess.Status,
		"jid":         sess.JID,
		"push_name":   sess.PushName,
		"connected_at": sess.ConnectedAt,
		"last_active": sess.LastActivityAt,
	})
}

// GetQR handles GET /sessions/:id/qr.
func (h *SessionHandler) GetQR(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	if sess.QRCode == nil {
		response.NotFound(c, "no QR code available for this session")
		return
	}
	response.Success(c, gin.H{
		"code":       *sess.QRCode,
		"expires_at": sess.QRExpiresAt,
	})
}

// RefreshQR handles POST /sessions/:id/qr/refresh by re-initializing the
// adapter, which re-enters the pairing flow and emits a fresh QR event.
func (h *SessionHandler) RefreshQR(c *gin.Context) {
	id, ok := sessionIDParam(c)
	if !ok {
		return
	}
	info, ok := h.supervisor.GetSession(id)
	if !ok {
		response.NotFound(c, "session not found")
		return
	}
	if err := info.Adapter.Initialize(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"status": "refreshing"})
}

// Logout handles POST /sessions/:id/logout.
func (h *SessionHandler) Logout(c *gin.Context) {
	id, ok := sessionIDParam(c)
	if !ok {
		return
	}
	info, ok := h.supervisor.GetSession(id)
	if !ok {
		response.NotFound(c, "session not found")
		return
	}
	if err := info.Adapter.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"status": "logged_out"})
}

// DeleteSession handles DELETE /sessions/:id.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, ok := sessionIDParam(c)
	if !ok {
		return
	}
	if err := h.supervisor.TerminateSession(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func sessionIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

// loadSession fetches the tenant-scoped session row, used by the read paths
// that report persisted status/QR state rather than querying the driver.
func (h *SessionHandler) loadSession(c *gin.Context) (*models.Session, bool) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return nil, false
	}
	id, ok := sessionIDParam(c)
	if !ok {
		return nil, false
	}

	var sess models.Session
	err := h.store.DB().WithContext(c.Request.Context()).
		Where("id = ? AND team_id = ?", id, tc.TeamID).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.NotFound(c, "session not found")
		return nil, false
	}
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return &sess, true
}
