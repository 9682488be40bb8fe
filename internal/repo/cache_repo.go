// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the prompt
// response cache (table ai_cache).
//
// Rows are keyed by the unique prompt_hash. Inserts are compare-and-swap:
// a concurrent writer that loses the race re-reads the winner's row instead
// of failing, so callers always get exactly one canonical response per digest.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-story-backend/internal/domain"
)

// LookupPrompt returns the cached entry for hash, or ErrNotFound.
func LookupPrompt(ctx context.Context, db *gorm.DB, hash string) (*domain.CachedPrompt, error) {
	var cp domain.CachedPrompt
	if err := db.WithContext(ctx).Where("prompt_hash = ?", hash).First(&cp).Error; err != nil {
		return nil, err
	}
	return &cp, nil
}

// RecordPromptHit bumps used_count and refreshes last_used_at for hash.
func RecordPromptHit(ctx context.Context, db *gorm.DB, hash string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.CachedPrompt{}).
		Where("prompt_hash = ?", hash).
		UpdateColumns(map[string]any{
			"used_count":   gorm.Expr("used_count + 1"),
			"last_used_at": now.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertPromptIfAbsent stores (hash, prompt, response) unless a row with the
// same hash already exists. It returns the canonical row and whether this
// call inserted it.
func InsertPromptIfAbsent(ctx context.Context, db *gorm.DB, hash, prompt, response string) (*domain.CachedPrompt, bool, error) {
	now := time.Now().UTC()
	cp := &domain.CachedPrompt{
		ID:         uuid.NewString(),
		PromptHash: hash,
		Prompt:     prompt,
		Response:   response,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "prompt_hash"}}, DoNothing: true}).
		Create(cp)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return cp, true, nil
	}
	existing, err := LookupPrompt(ctx, db, hash)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// PrunePromptCache deletes the least recently used rows so that at most
// maxEntries remain. maxEntries <= 0 disables pruning.
func PrunePromptCache(ctx context.Context, db *gorm.DB, maxEntries int) (int64, error) {
	if maxEntries <= 0 {
		return 0, nil
	}
	var total int64
	if err := db.WithContext(ctx).Model(&domain.CachedPrompt{}).Count(&total).Error; err != nil {
		return 0, err
	}
	excess := int(total) - maxEntries
	if excess <= 0 {
		return 0, nil
	}
	var ids []string
	if err := db.WithContext(ctx).
		Model(&domain.CachedPrompt{}).
		Order("last_used_at asc").Order("id").
		Limit(excess).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.CachedPrompt{})
	return res.RowsAffected, res.Error
}
