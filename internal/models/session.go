package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a Session, per spec §3.
type SessionStatus string

const (
	SessionStatusAuthenticating SessionStatus = "authenticating"
	SessionStatusActive         SessionStatus = "active"
	SessionStatusReconnecting   SessionStatus = "reconnecting"
	SessionStatusDisconnected   SessionStatus = "disconnected"
	SessionStatusFailed         SessionStatus = "failed"
)

// IsValid reports whether s is one of the recognized statuses.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusAuthenticating, SessionStatusActive, SessionStatusReconnecting,
		SessionStatusDisconnected, SessionStatusFailed:
		return true
	default:
		return false
	}
}

// OccupiesSlot reports whether s counts toward the single
// authenticating/active/reconnecting-per-team invariant.
func (s SessionStatus) OccupiesSlot() bool {
	return s == SessionStatusAuthenticating || s == SessionStatusActive || s == SessionStatusReconnecting
}

// Session is the persisted row behind the session supervisor's in-memory
// SessionInfo, per spec §3/§4.4.
type Session struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID         string         `gorm:"type:varchar(64);not null;index:idx_sessions_team" json:"team_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	PhoneNumber    *string        `gorm:"type:varchar(32)" json:"phone_number,omitempty"`
	JID            *string        `gorm:"type:varchar(255);uniqueIndex" json:"jid,omitempty"`
	Status         SessionStatus  `gorm:"type:varchar(32);not null;default:'authenticating';index:idx_sessions_status" json:"status"`
	QRCode         *string        `gorm:"type:text" json:"qr_code,omitempty"`
	QRGeneratedAt  *time.Time     `json:"qr_generated_at,omitempty"`
	QRExpiresAt    *time.Time     `json:"qr_expires_at,omitempty"`
	PushName       *string        `gorm:"type:varchar(255)" json:"push_name,omitempty"`
	LastActivityAt *time.Time     `json:"last_activity_at,omitempty"`
	ConnectedAt    *time.Time     `json:"connected_at,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Session) TableName() string { return "whatsapp_session" }

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TouchActivity bumps the last-activity clock used by idle cleanup.
func (s *Session) TouchActivity() {
	now := time.Now()
	s.LastActivityAt = &now
}

// IsIdle reports whether the session has been inactive longer than d.
func (s *Session) IsIdle(d time.Duration) bool {
	if s.LastActivityAt == nil {
		return false
	}
	return time.Since(*s.LastActivityAt) > d
}
