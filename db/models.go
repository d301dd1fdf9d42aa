package db

import "time"

// DateLayout is the canonical check-in date format. Dates are stored as
// plain strings so range queries compare lexicographically.
const DateLayout = "2006-01-02"

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// Response is one accepted check-in answer. The unique index on
// (slack_id, date) doubles as the duplicate-answer arbiter: a second insert
// for the same key is rejected at the storage layer.
type Response struct {
	ID          uint      `gorm:"primaryKey"`
	SlackID     string    `gorm:"uniqueIndex:idx_responses_member_date;not null"`
	Name        string    `gorm:"not null"`
	Role        string    `gorm:"not null"`
	Question    string    `gorm:"not null"`
	Date        string    `gorm:"uniqueIndex:idx_responses_member_date;size:10;not null"`
	Value       int       `gorm:"not null"`
	RespondedAt time.Time `gorm:"not null"`
	Blocker     string
}

// PendingCheckin is the lifecycle record for one (member, date) check-in:
// created when the prompt is sent, bumped on each follow-up wave, flipped
// when the member answers, purged after the retention window.
type PendingCheckin struct {
	ID            uint   `gorm:"primaryKey"`
	SlackID       string `gorm:"uniqueIndex:idx_checkins_member_date;not null"`
	Name          string `gorm:"not null"`
	Date          string `gorm:"uniqueIndex:idx_checkins_member_date;size:10;not null"`
	FollowupCount int    `gorm:"not null;default:0"`
	Responded     bool   `gorm:"not null;default:false"`
}

// RoleGrant gives a user one of the two privilege levels.
type RoleGrant struct {
	SlackID string `gorm:"primaryKey"`
	Role    string `gorm:"primaryKey;size:16"`
	AddedBy string `gorm:"not null"`
	AddedAt time.Time
}

// OooEntry is a date-ranged absence record; both bounds are inclusive.
type OooEntry struct {
	ID        uint   `gorm:"primaryKey"`
	SlackID   string `gorm:"index;not null"`
	StartDate string `gorm:"size:10;not null"`
	EndDate   string `gorm:"size:10;not null"`
	Reason    string
	SetBy     string `gorm:"not null"`
	CreatedAt time.Time
}

// ConfigRecord is a key/value row; the app configuration lives here as a
// single JSON blob plus a paused flag.
type ConfigRecord struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}
