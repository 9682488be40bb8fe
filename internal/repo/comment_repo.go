package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-story-backend/internal/domain"
)

// CreateComment inserts a comment on storyID. The author display name is
// stored alongside so listings never need a user join.
func CreateComment(ctx context.Context, db *gorm.DB, storyID, authorID, authorName, content string) (*domain.Comment, error) {
	c := &domain.Comment{
		ID:         uuid.NewString(),
		StoryID:    storyID,
		AuthorID:   authorID,
		AuthorName: authorName,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Omit("Story").Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetComment fetches a comment by ID, or ErrNotFound.
func GetComment(ctx context.Context, db *gorm.DB, id string) (*domain.Comment, error) {
	var c domain.Comment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns the comments of storyID, oldest first.
func ListComments(ctx context.Context, db *gorm.DB, storyID string) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Where("story_id = ?", storyID).
		Order("created_at asc").Order("id").
		Find(&out).Error
	return out, err
}

// CountAllComments returns the total number of comments.
func CountAllComments(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Comment{}).Count(&total).Error
	return total, err
}

// ListAllCommentsPage returns comments across all stories, newest first, each
// carrying the title of its story.
func ListAllCommentsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Model(&domain.Comment{}).
		Select("comments.*, stories.title AS story_title").
		Joins("JOIN stories ON stories.id = comments.story_id").
		Order("comments.created_at desc").Order("comments.id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteComment removes a comment by ID. Authorization is the caller's job.
func DeleteComment(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
