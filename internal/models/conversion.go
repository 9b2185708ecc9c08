package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversionType string

const (
	ConversionTypePurchase ConversionType = "purchase"
	ConversionTypeLead     ConversionType = "lead"
	ConversionTypeBooking  ConversionType = "booking"
	ConversionTypeSignup   ConversionType = "signup"
	ConversionTypeDownload ConversionType = "download"
	ConversionTypeCustom   ConversionType = "custom"
)

// TouchpointChannel classifies the origin of a journey touchpoint.
type TouchpointChannel string

const (
	ChannelWhatsApp TouchpointChannel = "whatsapp"
	ChannelWeb      TouchpointChannel = "web"
	ChannelEmail    TouchpointChannel = "email"
	ChannelOther    TouchpointChannel = "other"
)

// JourneyStage is the awareness/consideration/conversion/retention
// ordinal the journey mapper assigns each touchpoint, per spec §4.11.
type JourneyStage string

const (
	JourneyAwareness     JourneyStage = "awareness"
	JourneyConsideration JourneyStage = "consideration"
	JourneyConversion    JourneyStage = "conversion"
	JourneyRetention     JourneyStage = "retention"
)

// Touchpoint is a single interaction on any channel contributing to a
// journey, embedded in journeys and conversions per spec §3.
type Touchpoint struct {
	TouchpointID string            `json:"touchpoint_id"`
	Timestamp    time.Time         `json:"timestamp"`
	Channel      TouchpointChannel `json:"channel"`
	Type         string            `json:"type"`
	Data         JSONMap           `json:"data"`
	Stage        JourneyStage      `json:"stage,omitempty"`
}

// Conversion is a completed outcome attributed across touchpoints, per
// spec §3.
type Conversion struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID      string             `gorm:"type:varchar(64);not null;index:idx_conversions_team" json:"team_id"`
	UserID      string             `gorm:"type:varchar(64);not null;index:idx_conversions_user" json:"user_id"`
	WAPhone     *string            `gorm:"type:varchar(32)" json:"wa_phone,omitempty"`
	Type        ConversionType     `gorm:"type:varchar(16);not null" json:"type"`
	Value       float64            `gorm:"not null;default:0" json:"value"`
	Currency    string             `gorm:"type:varchar(8);not null;default:'USD'" json:"currency"`
	Timestamp   time.Time          `gorm:"not null" json:"timestamp"`
	Touchpoints JSONSlice          `gorm:"type:jsonb" json:"touchpoints"`
	Attribution JSONMap            `gorm:"type:jsonb" json:"attribution"`
	Metadata    JSONMap            `gorm:"type:jsonb" json:"metadata"`
	CreatedAt   time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

func (Conversion) TableName() string { return "whatsapp_conversions" }

func (c *Conversion) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
