// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-story-backend/internal/domain"
)

// ConversationsStats returns the number of conversations attached to storyID
// and the greatest UpdatedAt among them (nil when there are none).
func ConversationsStats(ctx context.Context, db *gorm.DB, storyID string) (count int64, maxUpdatedAt *time.Time, err error) {
	return latest(ctx, db.Model(&domain.Conversation{}).Where("story_id = ?", storyID), "updated_at")
}

// CommentsStats returns the number of comments on storyID and the newest
// CreatedAt among them.
func CommentsStats(ctx context.Context, db *gorm.DB, storyID string) (count int64, maxCreatedAt *time.Time, err error) {
	return latest(ctx, db.Model(&domain.Comment{}).Where("story_id = ?", storyID), "created_at")
}

func latest(ctx context.Context, q *gorm.DB, column string) (int64, *time.Time, error) {
	q = q.WithContext(ctx)
	var count int64
	if err := q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest timestamp (avoid MAX() -> TEXT in SQLite)
	var row struct {
		At time.Time
	}
	if err := q.Session(&gorm.Session{}).Select(column + " AS at").Order(column + " DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.At, nil
}
