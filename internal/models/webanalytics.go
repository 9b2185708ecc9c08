package models

import "time"

// The following model the upstream web-analytics schema referenced
// read-only by the correlation matchers and journey mapper, per spec §6
// ("read-only joins against upstream web analytics tables"). This repo
// never migrates or writes these tables.

// Website is a tracked web property belonging to a team.
type Website struct {
	ID     string `gorm:"type:uuid;primaryKey;column:website_id" json:"website_id"`
	TeamID string `gorm:"column:team_id" json:"team_id"`
	Domain string `gorm:"column:domain" json:"domain"`
}

func (Website) TableName() string { return "website" }

// WebSession is a visitor session on a tracked website (named WebSession
// to avoid colliding with the WhatsApp Session entity).
type WebSession struct {
	ID        string    `gorm:"type:uuid;primaryKey;column:session_id" json:"session_id"`
	WebsiteID string    `gorm:"column:website_id" json:"website_id"`
	UserID    *string   `gorm:"column:user_id" json:"user_id,omitempty"`
	UserAgent string    `gorm:"column:user_agent" json:"user_agent"`
	Metadata  JSONMap   `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (WebSession) TableName() string { return "session" }

// WebsiteEvent is a pageview or custom event on a tracked website.
type WebsiteEvent struct {
	ID         string    `gorm:"type:uuid;primaryKey;column:event_id" json:"event_id"`
	WebsiteID  string    `gorm:"column:website_id" json:"website_id"`
	SessionID  string    `gorm:"column:session_id" json:"session_id"`
	UrlPath    string    `gorm:"column:url_path" json:"url_path"`
	EventName  string    `gorm:"column:event_name" json:"event_name"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (WebsiteEvent) TableName() string { return "website_event" }

// EventDataEntry is a key/value custom property attached to a
// WebsiteEvent, used by the phone/email matchers' event-property search.
type EventDataEntry struct {
	ID              string `gorm:"type:uuid;primaryKey;column:event_data_id" json:"event_data_id"`
	WebsiteID       string `gorm:"column:website_id" json:"website_id"`
	WebsiteEventID  string `gorm:"column:website_event_id" json:"website_event_id"`
	DataKey         string `gorm:"column:data_key" json:"data_key"`
	StringValue     string `gorm:"column:string_value" json:"string_value"`
	DataType        string `gorm:"column:data_type" json:"data_type"`
}

func (EventDataEntry) TableName() string { return "event_data" }
