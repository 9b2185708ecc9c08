// Package messaging implements the message handler and event processor,
// per spec §4.5/§4.6. The message handler is stateless: it parses one
// driver payload into the canonical Message record, threads it into a
// conversation, and persists both through the storage gateway.
package messaging

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.mau.fi/whatsmeow/types/events"
	"gorm.io/gorm"

	"whatsapp-api/internal/models"
	"whatsapp-api/internal/storage"
	"whatsapp-api/internal/tenant"
)

// Handler parses and persists canonical messages.
type Handler struct {
	store *storage.Gateway
}

// NewHandler builds a Handler atop the storage gateway.
func NewHandler(store *storage.Gateway) *Handler {
	return &Handler{store: store}
}

// HandleDriverMessage parses a raw *events.Message from the driver into the
// canonical record, upserts the conversation thread, and persists both.
// `waMessageId` collisions on `(teamId, sessionId)` are treated as
// duplicates and ignored, per spec §4.5.
func (h *Handler) HandleDriverMessage(ctx context.Context, sessionID uuid.UUID, raw *events.Message) (*models.Message, error) {
	tc := tenant.MustFromContext(ctx)

	msg := parseCanonical(tc.TeamID, sessionID, raw)

	var result *models.Message
	err := h.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		var existing models.Message
		err := tx.Where("team_id = ? AND session_id = ? AND wa_message_id = ?", tc.TeamID, sessionID, msg.WAMessageID).
			First(&existing).Error
		if err == nil {
			result = &existing
			return nil
		}
		if !isRecordNotFound(err) {
			return err
		}

		conv, err := threadConversation(tx, tc.TeamID, msg)
		if err != nil {
			return err
		}
		msg.ConversationID = &conv.ID

		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		result = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func isRecordNotFound(err error) bool {
	return err == gorm.ErrRecordNotFound
}

// threadConversation finds or opens the conversation for the message's
// contact phone and updates its rollup counters, per spec §4.5.
func threadConversation(tx *gorm.DB, teamID string, msg *models.Message) (*models.Conversation, error) {
	contactPhone := msg.FromPhone
	if msg.Direction == models.DirectionOutbound {
		contactPhone = msg.ToPhone
	}

	var conv models.Conversation
	err := tx.Where("team_id = ? AND contact_phone = ?", teamID, contactPhone).First(&conv).Error
	if isRecordNotFound(err) {
		conv = models.Conversation{
			TeamID:         teamID,
			ContactPhone:   contactPhone,
			Status:         models.ConversationStatusOpen,
			Stage:          models.StageInitialContact,
			FirstMessageAt: msg.Timestamp,
			LastMessageAt:  msg.Timestamp,
			MessageCount:   0,
		}
		if err := tx.Create(&conv).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	conv.MessageCount++
	conv.LastMessageAt = msg.Timestamp
	if msg.Direction == models.DirectionInbound {
		conv.UnreadCount++
	}
	if err := tx.Save(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// parseCanonical applies the fixed mapping rules of spec §4.5.
func parseCanonical(teamID string, sessionID uuid.UUID, raw *events.Message) *models.Message {
	info := raw.Info

	waMessageID := string(info.ID)

	direction := models.DirectionInbound
	if info.IsFromMe {
		direction = models.DirectionOutbound
	}

	fromPhone := jidUser(info.Sender.String())
	toPhone := jidUser(info.Chat.String())

	msgType, body, mediaMime, mediaSize, caption := classify(raw)

	var quoted *string
	if ctx := extractedContextInfo(raw); ctx != nil && ctx.GetStanzaID() != "" {
		id := ctx.GetStanzaID()
		quoted = &id
	}

	metadata := models.JSONMap{
		"has_media":     mediaMime != nil,
		"device_type":   deviceType(info.ID),
		"broadcast":     info.Chat.Server == "broadcast",
		"is_forwarded":  isForwarded(raw),
		"mentioned_ids": mentionedIDs(raw),
	}

	return &models.Message{
		TeamID:        teamID,
		SessionID:     sessionID,
		WAMessageID:   waMessageID,
		Direction:     direction,
		FromPhone:     fromPhone,
		ToPhone:       toPhone,
		ChatID:        info.Chat.String(),
		Type:          msgType,
		Body:          body,
		MediaMimeType: mediaMime,
		MediaSize:     mediaSize,
		Caption:       caption,
		QuotedMsgID:   quoted,
		Timestamp:     info.Timestamp,
		Metadata:      metadata,
	}
}

func jidUser(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}

func deviceType(id string) string {
	if strings.HasPrefix(id, "3EB0") {
		return "web"
	}
	return "mobile"
}
