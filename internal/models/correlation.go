package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CorrelationMethod is the matcher (or manual action) that produced a
// correlation's primary evidence, per spec §3/§4.7.
type CorrelationMethod string

const (
	MethodPhone     CorrelationMethod = "phone"
	MethodEmail     CorrelationMethod = "email"
	MethodSession   CorrelationMethod = "session"
	MethodUserAgent CorrelationMethod = "user_agent"
	MethodManual    CorrelationMethod = "manual"
	MethodMLModel   CorrelationMethod = "ml_model"
)

// UserIdentityCorrelation links a WhatsApp phone to a web-analytics
// identity with a confidence score, per spec §3/§4.9.
type UserIdentityCorrelation struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID           string            `gorm:"type:varchar(64);not null;index:idx_correlations_team" json:"team_id"`
	WAPhone          string            `gorm:"type:varchar(32);not null;index:idx_correlations_phone" json:"wa_phone"`
	WAContactName    *string           `gorm:"type:varchar(255)" json:"wa_contact_name,omitempty"`
	UmamiUserID      *string           `gorm:"type:varchar(64);index:idx_correlations_user" json:"umami_user_id,omitempty"`
	UmamiSessionID   *string           `gorm:"type:varchar(64)" json:"umami_session_id,omitempty"`
	ConfidenceScore  float64           `gorm:"not null" json:"confidence_score"`
	Method           CorrelationMethod `gorm:"type:varchar(16);not null" json:"method"`
	Evidence         JSONMap           `gorm:"type:jsonb" json:"evidence"`
	Verified         bool              `gorm:"default:false" json:"verified"`
	VerifiedBy       *string           `gorm:"type:varchar(64)" json:"verified_by,omitempty"`
	VerifiedAt       *time.Time        `json:"verified_at,omitempty"`
	UserConsent      bool              `gorm:"default:true" json:"user_consent"`
	IsActive         bool              `gorm:"default:true;index:idx_correlations_active" json:"is_active"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserIdentityCorrelation) TableName() string { return "whatsapp_user_identity_correlation" }

func (c *UserIdentityCorrelation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Approve applies a human-verification decision, per spec §4.10.
func (c *UserIdentityCorrelation) Approve(verifiedBy string, adjustedConfidence *float64) {
	now := time.Now()
	c.Verified = true
	c.VerifiedBy = &verifiedBy
	c.VerifiedAt = &now
	if adjustedConfidence != nil {
		c.ConfidenceScore = *adjustedConfidence
	}
}

// Reject deactivates the row but keeps it for feedback analysis, per spec
// §3 ("rejection leaves the row with isActive=false, verified=true").
func (c *UserIdentityCorrelation) Reject(verifiedBy, reason string) {
	now := time.Now()
	c.IsActive = false
	c.Verified = true
	c.VerifiedBy = &verifiedBy
	c.VerifiedAt = &now
	if c.Evidence == nil {
		c.Evidence = JSONMap{}
	}
	c.Evidence["rejection_reason"] = reason
}
