// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for AI assistant
// conversations and their messages.
//
// Functions:
//
//   - CreateConversation(ctx, db, storyID, userID, genre, title) -> *domain.Conversation, error
//   - GetConversation(ctx, db, id) -> *domain.Conversation, error
//   - TouchConversation(ctx, db, id, now) -> error
//     Moves updated_at forward to now; it never moves backwards.
//   - ListConversationsByStory(ctx, db, storyID) -> []domain.Conversation, error
//     Most recently updated first, messages preloaded oldest first.
//   - CreateMessage(ctx, db, conversationID, isUser, content, promptType, at) -> *domain.Message, error
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-story-backend/internal/domain"
)

// CreateConversation inserts a new conversation thread for storyID.
func CreateConversation(ctx context.Context, db *gorm.DB, storyID, userID, genre, title string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	c := &domain.Conversation{
		ID:            uuid.NewString(),
		StoryID:       storyID,
		UserID:        userID,
		DetectedGenre: genre,
		Title:         title,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.WithContext(ctx).Omit("Story", "Messages").Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversation fetches a conversation (without messages) by ID, or ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// TouchConversation sets updated_at to max(now, previous updated_at).
func TouchConversation(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	c, err := GetConversation(ctx, db, id)
	if err != nil {
		return err
	}
	next := now.UTC()
	if !next.After(c.UpdatedAt) {
		// Keep ordering strict even when clocks collide.
		next = c.UpdatedAt.Add(time.Microsecond)
	}
	return db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", next).Error
}

// ListConversationsByStory returns all conversations of storyID, most
// recently updated first, each with its messages in chronological order.
func ListConversationsByStory(ctx context.Context, db *gorm.DB, storyID string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at asc").Order("id asc")
		}).
		Where("story_id = ?", storyID).
		Order("updated_at desc").Order("id").
		Find(&out).Error
	return out, err
}

// CreateMessage appends a message to a conversation at the given instant.
// promptType is nil for AI responses.
func CreateMessage(ctx context.Context, db *gorm.DB, conversationID string, isUser bool, content string, promptType *string, at time.Time) (*domain.Message, error) {
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		IsUser:         isUser,
		Content:        content,
		PromptType:     promptType,
		CreatedAt:      at.UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessage fetches a single message by ID, or ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
