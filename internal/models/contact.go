package models

import "time"

// Contact is a WhatsApp-side contact record, unique per (team, phone), per
// spec §3.
type Contact struct {
	TeamID        string    `gorm:"type:varchar(64);primaryKey" json:"team_id"`
	PhoneNumber   string    `gorm:"type:varchar(32);primaryKey" json:"phone_number"`
	Name          *string   `gorm:"type:varchar(255)" json:"name,omitempty"`
	Pushname      *string   `gorm:"type:varchar(255)" json:"pushname,omitempty"`
	IsMyContact   bool      `gorm:"default:false" json:"is_my_contact"`
	IsGroup       bool      `gorm:"default:false" json:"is_group"`
	IsBusiness    bool      `gorm:"default:false" json:"is_business"`
	ProfilePicURL *string   `gorm:"type:text" json:"profile_pic_url,omitempty"`
	Metadata      JSONMap   `gorm:"type:jsonb" json:"metadata"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string { return "whatsapp_contact" }
