package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is an append-only observability row, per spec §3/§4.6. Retained
// at least EventConfig.RetentionDays; purgeable once Processed is true.
type Event struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID         string    `gorm:"type:varchar(64);not null;index:idx_events_team" json:"team_id"`
	SessionID      uuid.UUID `gorm:"type:uuid;not null;index:idx_events_session" json:"session_id"`
	Type           string    `gorm:"type:varchar(64);not null;index:idx_events_type" json:"type"`
	Data           JSONMap   `gorm:"type:jsonb" json:"data"`
	Timestamp      time.Time `gorm:"not null;index:idx_events_timestamp" json:"timestamp"`
	Processed      bool      `gorm:"default:false;index:idx_events_processed" json:"processed"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	SentToAnalytics bool      `gorm:"default:false" json:"sent_to_analytics"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Event) TableName() string { return "whatsapp_event" }

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return nil
}

// MarkProcessed records the batch writer's completion of this row.
func (e *Event) MarkProcessed() {
	now := time.Now()
	e.Processed = true
	e.ProcessedAt = &now
}

// Envelope is the self-describing payload queued on the KV gateway's
// event queue and published on the event bus, per spec §4.2/§4.6.
type Envelope struct {
	Type      string    `json:"type"`
	TeamID    string    `json:"team_id"`
	SessionID uuid.UUID `json:"session_id"`
	EventType string    `json:"event_type"`
	Data      JSONMap   `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
