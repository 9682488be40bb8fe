package domain

import "time"

// Idempotency remembers which AI message answered an Idempotency-Key.
// Subject is the caller's user id, or "ip:<addr>" for anonymous callers.
// The triple (subject, story_id, key) is unique; an expired row stays until
// the key is recorded again.
type Idempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Subject   string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_subject_story_key,priority:1"`
	StoryID   string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_subject_story_key,priority:2"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_subject_story_key,priority:3"`
	MessageID string    `gorm:"type:char(36);not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// Expired reports whether the record no longer replays at now.
func (i Idempotency) Expired(now time.Time) bool { return !now.Before(i.ExpiresAt) }
