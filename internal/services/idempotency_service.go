// Package services – IdempotencyService
//
// IdempotencyService records which AI message answered an Idempotency-Key so
// a retried analysis request replays the recorded result instead of calling
// the provider again. Keys are scoped to (subject, story).
package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-story-backend/internal/repo"
)

// IdempotencyService persists idempotency records with a fixed TTL.
type IdempotencyService struct {
	DB  *gorm.DB
	TTL time.Duration

	now func() time.Time
}

// NewIdempotencyService returns a service keeping records for ttl; ttl <= 0
// means 24h.
func NewIdempotencyService(db *gorm.DB, ttl time.Duration) *IdempotencyService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyService{DB: db, TTL: ttl, now: time.Now}
}

// Lookup returns the message recorded for the key, if it has not expired.
func (s *IdempotencyService) Lookup(ctx context.Context, subject, storyID, key string) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, subject, storyID, key, s.clock().UTC())
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return rec.MessageID, true, nil
}

// Exists adapts Lookup to the middleware lookup signature.
func (s *IdempotencyService) Exists(ctx context.Context, subject, storyID, key string, _ time.Time) (bool, error) {
	_, ok, err := s.Lookup(ctx, subject, storyID, key)
	return ok, err
}

// Record stores the message that answered the key. A live duplicate is not
// an error: the first record wins. An expired one is replaced.
func (s *IdempotencyService) Record(ctx context.Context, subject, storyID, key, messageID string) error {
	now := s.clock().UTC()
	_, err := repo.CreateIdempotency(ctx, s.DB, subject, storyID, key, messageID, http.StatusOK, now, s.TTL)
	if !errors.Is(err, repo.ErrDuplicate) {
		return err
	}
	removed, err := repo.DeleteExpiredIdempotency(ctx, s.DB, subject, storyID, key, now)
	if err != nil || !removed {
		return err
	}
	_, err = repo.CreateIdempotency(ctx, s.DB, subject, storyID, key, messageID, http.StatusOK, now, s.TTL)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

func (s *IdempotencyService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
