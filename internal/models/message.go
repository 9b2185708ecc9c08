package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageDirection distinguishes inbound/outbound traffic, per spec §3.
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// MessageType is the canonical content-type taxonomy the message handler
// maps every driver payload onto, per spec §4.5.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeDocument MessageType = "document"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypeLocation MessageType = "location"
	MessageTypeContact  MessageType = "contact"
	MessageTypePoll     MessageType = "poll"
	MessageTypeReaction MessageType = "reaction"
)

// Message is the canonical, immutable (save for IsRead/ReadAt) record a
// driver payload is parsed into, per spec §3/§4.5.
type Message struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID         string           `gorm:"type:varchar(64);not null;index:idx_messages_team" json:"team_id"`
	SessionID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_messages_session" json:"session_id"`
	ConversationID *uuid.UUID       `gorm:"type:uuid;index:idx_messages_conversation" json:"conversation_id,omitempty"`
	WAMessageID    string           `gorm:"type:varchar(255);not null;uniqueIndex:idx_messages_wa_unique,composite:wa" json:"wa_message_id"`
	Direction      MessageDirection `gorm:"type:varchar(16);not null" json:"direction"`
	FromPhone      string           `gorm:"type:varchar(32);not null;index:idx_messages_from" json:"from_phone"`
	ToPhone        string           `gorm:"type:varchar(32);not null" json:"to_phone"`
	ChatID         string           `gorm:"type:varchar(255);not null;index:idx_messages_chat" json:"chat_id"`
	Type           MessageType      `gorm:"type:varchar(16);not null;default:'text'" json:"type"`
	Body           *string          `gorm:"type:text" json:"body,omitempty"`
	MediaURL       *string          `gorm:"type:text" json:"media_url,omitempty"`
	MediaMimeType  *string          `gorm:"type:varchar(128)" json:"media_mime_type,omitempty"`
	MediaSize      *int64           `json:"media_size,omitempty"`
	Caption        *string          `gorm:"type:text" json:"caption,omitempty"`
	QuotedMsgID    *string          `gorm:"type:varchar(255)" json:"quoted_msg_id,omitempty"`
	Timestamp      time.Time        `gorm:"not null;index:idx_messages_timestamp" json:"timestamp"`
	IsRead         bool             `gorm:"default:false" json:"is_read"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
	Metadata       JSONMap          `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string { return "whatsapp_message" }

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MarkRead flips IsRead/ReadAt, the only mutation the spec allows after
// creation.
func (m *Message) MarkRead() {
	now := time.Now()
	m.IsRead = true
	m.ReadAt = &now
}
