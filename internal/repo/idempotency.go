package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-story-backend/internal/domain"
)

// idempotencyKey narrows a query to one (subject, story, key) slot.
func idempotencyKey(subject, storyID, key string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("subject = ? AND story_id = ? AND key = ?", subject, storyID, key)
	}
}

// GetIdempotency returns the live record for the slot, or ErrNotFound when
// there is none or it has expired by now. A blank storyID never matches.
func GetIdempotency(ctx context.Context, db *gorm.DB, subject, storyID, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(storyID) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Scopes(idempotencyKey(subject, storyID, key)).
		Where("expires_at > ?", now).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency records the answer for the slot, valid for ttl from
// now. An occupied slot yields ErrDuplicate, even if its record expired.
func CreateIdempotency(ctx context.Context, db *gorm.DB, subject, storyID, key, messageID string, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	now = now.UTC()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		Subject:   subject,
		StoryID:   storyID,
		Key:       key,
		MessageID: messageID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err := db.WithContext(ctx).Create(rec).Error
	switch {
	case isUniqueViolation(err):
		return nil, ErrDuplicate
	case err != nil:
		return nil, err
	}
	return rec, nil
}

// DeleteExpiredIdempotency frees the slot if its record expired at or
// before now, reporting whether a row went.
func DeleteExpiredIdempotency(ctx context.Context, db *gorm.DB, subject, storyID, key string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Scopes(idempotencyKey(subject, storyID, key)).
		Where("expires_at <= ?", now).
		Delete(&domain.Idempotency{})
	return res.RowsAffected > 0, res.Error
}
