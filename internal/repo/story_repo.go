// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Story model.
//
// Ownership is enforced in the WHERE clause of mutating queries: a story that
// exists but belongs to someone else looks exactly like a missing one here,
// and the service layer decides whether that is a 403 or a 404.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-story-backend/internal/domain"
)

// CreateStory inserts a story owned by authorID.
func CreateStory(ctx context.Context, db *gorm.DB, authorID, title, content string, public bool) (*domain.Story, error) {
	now := time.Now().UTC()
	s := &domain.Story{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		IsPublic:  public,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Omit("Author").Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetStory fetches a story by ID regardless of visibility, or ErrNotFound.
func GetStory(ctx context.Context, db *gorm.DB, id string) (*domain.Story, error) {
	var s domain.Story
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CountPublicStories returns the number of public stories.
func CountPublicStories(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Story{}).Where("is_public = ?", true).Count(&total).Error
	return total, err
}

// ListPublicStoriesPage returns public stories newest first. A limit <= 0
// returns every public story.
func ListPublicStoriesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Story, error) {
	var out []domain.Story
	q := db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("created_at desc").Order("id")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListStoriesByAuthor returns every story (public or private) owned by authorID,
// newest first.
func ListStoriesByAuthor(ctx context.Context, db *gorm.DB, authorID string) ([]domain.Story, error) {
	var out []domain.Story
	err := db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at desc").Order("id").
		Find(&out).Error
	return out, err
}

// StoryPatch carries optional story updates; nil fields are untouched.
type StoryPatch struct {
	Title    *string
	Content  *string
	IsPublic *bool
}

// UpdateStory applies patch to the story id owned by authorID. It returns
// ErrNotFound when no row matches.
func UpdateStory(ctx context.Context, db *gorm.DB, id, authorID string, patch StoryPatch) error {
	cols := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		cols["title"] = *patch.Title
	}
	if patch.Content != nil {
		cols["content"] = *patch.Content
	}
	if patch.IsPublic != nil {
		cols["is_public"] = *patch.IsPublic
	}
	res := db.WithContext(ctx).
		Model(&domain.Story{}).
		Where("id = ? AND author_id = ?", id, authorID).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStory removes the story id owned by authorID together with its
// comments, conversations and messages. Dependents are deleted explicitly so
// the result does not hinge on the connection's foreign_keys pragma.
func DeleteStory(ctx context.Context, db *gorm.DB, id, authorID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Story{}).Where("id = ? AND author_id = ?", id, authorID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		convIDs := tx.Model(&domain.Conversation{}).Select("id").Where("story_id = ?", id)
		if err := tx.Where("conversation_id IN (?)", convIDs).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("story_id = ?", id).Delete(&domain.Conversation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("story_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.Story{}).Error
	})
}
