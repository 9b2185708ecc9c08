package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationStatus string

const (
	ConversationStatusOpen     ConversationStatus = "open"
	ConversationStatusClosed   ConversationStatus = "closed"
	ConversationStatusArchived ConversationStatus = "archived"
)

// ConversationStage mirrors the sales-funnel stages the journey mapper
// translates into journey stages, per spec §4.11.
type ConversationStage string

const (
	StageInitialContact ConversationStage = "initial_contact"
	StageQualification  ConversationStage = "qualification"
	StageProposal       ConversationStage = "proposal"
	StageNegotiation    ConversationStage = "negotiation"
	StageClose          ConversationStage = "close"
)

// Conversation threads messages for one contact within a team, per spec §3.
type Conversation struct {
	ID             uuid.UUID          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID         string             `gorm:"type:varchar(64);not null;index:idx_conversations_team" json:"team_id"`
	ContactPhone   string             `gorm:"type:varchar(32);not null;index:idx_conversations_phone" json:"contact_phone"`
	ContactName    *string            `gorm:"type:varchar(255)" json:"contact_name,omitempty"`
	Status         ConversationStatus `gorm:"type:varchar(16);not null;default:'open';index:idx_conversations_status" json:"status"`
	Stage          ConversationStage  `gorm:"type:varchar(32);not null;default:'initial_contact'" json:"stage"`
	AssignedTo     *string            `gorm:"type:varchar(64);index:idx_conversations_assigned" json:"assigned_to,omitempty"`
	UnreadCount    int                `gorm:"default:0" json:"unread_count"`
	FirstMessageAt time.Time          `json:"first_message_at"`
	LastMessageAt  time.Time          `gorm:"index:idx_conversations_last_message" json:"last_message_at"`
	MessageCount   int                `gorm:"default:0" json:"message_count"`
	Metadata       JSONMap            `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string { return "whatsapp_conversation" }

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// SetStage records the previous stage in metadata before advancing, so the
// funnel can reconstruct transitions (`metadata.previous_stage`).
func (c *Conversation) SetStage(stage ConversationStage) {
	if c.Metadata == nil {
		c.Metadata = JSONMap{}
	}
	c.Metadata["previous_stage"] = string(c.Stage)
	c.Stage = stage
}

// Duration returns the conversation's span, used by conversation metrics.
func (c *Conversation) Duration() time.Duration {
	return c.LastMessageAt.Sub(c.FirstMessageAt)
}
