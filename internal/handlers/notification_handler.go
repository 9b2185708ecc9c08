package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"whatsapp-api/internal/kv"
	"whatsapp-api/internal/middleware"
	"whatsapp-api/internal/models"
	"whatsapp-api/internal/storage"
	"whatsapp-api/pkg/response"
)

// NotificationHandler projects the event stream into a notification feed.
// There is no dedicated notification table — read/dismissed state and
// preferences live in the KV gateway, keyed per team, since the system
// persists no notification rows of its own.
type NotificationHandler struct {
	store *storage.Gateway
	kvg   *kv.Gateway
}

func NewNotificationHandler(store *storage.Gateway, kvg *kv.Gateway) *NotificationHandler {
	return &NotificationHandler{store: store, kvg: kvg}
}

const notificationStateTTL = 90 * 24 * time.Hour

type notificationState struct {
	Read      map[string]bool `json:"read"`
	Dismissed map[string]bool `json:"dismissed"`
}

func (h *NotificationHandler) loadState(c *gin.Context, teamID string) (notificationState, error) {
	var state notificationState
	found, err := h.kvg.Get(c.Request.Context(), "notif_state:"+teamID, &state)
	if err != nil {
		return notificationState{}, err
	}
	if !found {
		state = notificationState{}
	}
	if state.Read == nil {
		state.Read = map[string]bool{}
	}
	if state.Dismissed == nil {
		state.Dismissed = map[string]bool{}
	}
	return state, nil
}

func (h *NotificationHandler) saveState(c *gin.Context, teamID string, state notificationState) error {
	return h.kvg.Set(c.Request.Context(), "notif_state:"+teamID, state, notificationStateTTL)
}

type notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      models.JSONMap `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	Read      bool           `json:"read"`
}

// ListNotifications handles GET /notifications, excluding dismissed events.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	state, err := h.loadState(c, tc.TeamID)
	if err != nil {
		response.Error(c, err)
		return
	}

	page := pageFromQuery(c)
	var events []models.Event
	q := h.store.DB().WithContext(c.Request.Context()).
		Where("team_id = ?", tc.TeamID).
		Order("timestamp desc")

	var total int64
	if err := q.Model(&models.Event{}).Count(&total).Error; err != nil {
		response.Error(c, err)
		return
	}
	if err := q.Offset(page.Offset()).Limit(page.Limit()).Find(&events).Error; err != nil {
		response.Error(c, err)
		return
	}

	notifications := make([]notification, 0, len(events))
	for _, ev := range events {
		id := ev.ID.String()
		if state.Dismissed[id] {
			continue
		}
		notifications = append(notifications, notification{
			ID:        id,
			Type:      ev.Type,
			Data:      ev.Data,
			Timestamp: ev.Timestamp,
			Read:      state.Read[id],
		})
	}

	response.Paginated(c, notifications, page.Page, page.PerPage, total)
}

// UnreadCount handles GET /notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	state, err := h.loadState(c, tc.TeamID)
	if err != nil {
		response.Error(c, err)
		return
	}

	var ids []string
	if err := h.store.DB().WithContext(c.Request.Context()).
		Model(&models.Event{}).
		Where("team_id = ?", tc.TeamID).
		Pluck("id", &ids).Error; err != nil {
		response.Error(c, err)
		return
	}

	count := 0
	for _, id := range ids {
		if !state.Read[id] && !state.Dismissed[id] {
			count++
		}
	}

	response.Success(c, gin.H{"unread_count": count})
}

// MarkRead handles POST /notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	state, err := h.loadState(c, tc.TeamID)
	if err != nil {
		response.Error(c, err)
		return
	}
	state.Read[c.Param("id")] = true
	if err := h.saveState(c, tc.TeamID, state); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id"), "read": true})
}

// MarkAllRead handles POST /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var ids []string
	if err := h.store.DB().WithContext(c.Request.Context()).
		Model(&models.Event{}).
		Where("team_id = ?", tc.TeamID).
		Pluck("id", &ids).Error; err != nil {
		response.Error(c, err)
		return
	}

	state, err := h.loadState(c, tc.TeamID)
	if err != nil {
		response.Error(c, err)
		return
	}
	for _, id := range ids {
		state.Read[id] = true
	}
	if err := h.saveState(c, tc.TeamID, state); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"marked": len(ids)})
}

// Dismiss handles POST /notifications/:id/dismiss.
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	state, err := h.loadState(c, tc.TeamID)
	if err != nil {
		response.Error(c, err)
		return
	}
	state.Dismissed[c.Param("id")] = true
	if err := h.saveState(c, tc.TeamID, state); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id"), "dismissed": true})
}

type notificationPreferences struct {
	Types map[string]bool `json:"types"`
}

// GetPreferences handles GET /notifications/preferences.
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	var prefs notificationPreferences
	found, err := h.kvg.Get(c.Request.Context(), "notif_prefs:"+tc.TeamID, &prefs)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		prefs = notificationPreferences{Types: map[string]bool{}}
	}
	response.Success(c, prefs)
}

// UpdatePreferences handles PUT /notifications/preferences.
func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	var prefs notificationPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := h.kvg.Set(c.Request.Context(), "notif_prefs:"+tc.TeamID, prefs, 0); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, prefs)
}
