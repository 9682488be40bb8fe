// Package services – CommentService
//
// Comments are append-only remarks on public stories. Anyone can read them;
// authenticated users can post; the author of a comment or an admin can
// remove it.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-story-backend/internal/auth"
	"github.com/tbourn/go-story-backend/internal/domain"
	"github.com/tbourn/go-story-backend/internal/repo"
	"github.com/tbourn/go-story-backend/internal/utils"
)

// CommentService implements comment use-cases.
type CommentService struct {
	DB *gorm.DB

	// MaxContentRunes rejects longer comments; 0 disables the check.
	MaxContentRunes int
}

// NewCommentService returns a CommentService allowing 2000-rune comments.
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{DB: db, MaxContentRunes: 2000}
}

// Create posts a comment by the caller on a public story. The display name
// is copied from the caller's profile.
func (s *CommentService) Create(ctx context.Context, who auth.Identity, storyID, content string) (*domain.Comment, error) {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("story.id", storyID),
			attribute.String("user.id", who.UserID),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidRequest)
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidRequest, s.MaxContentRunes)
	}
	st, err := s.publicStory(ctx, storyID)
	if err != nil {
		return nil, err
	}

	u, err := repo.GetUserByID(ctx, s.DB, who.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	c, err := repo.CreateComment(ctx, s.DB, st.ID, who.UserID, u.DisplayName(), content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return c, nil
}

// List returns a public story's comments, oldest first.
func (s *CommentService) List(ctx context.Context, storyID string) ([]domain.Comment, error) {
	st, err := s.publicStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	items, err := repo.ListComments(ctx, s.DB, st.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return items, nil
}

// Delete removes a comment written by the caller, or any comment for admins.
func (s *CommentService) Delete(ctx context.Context, who auth.Identity, commentID string) error {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("comment.id", commentID)))
	defer span.End()

	c, err := repo.GetComment(ctx, s.DB, commentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("comment %w", ErrNotFound)
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if c.AuthorID != who.UserID && !who.IsAdmin() {
		return fmt.Errorf("%w: only the author or an admin can delete this comment", ErrForbidden)
	}
	if err := repo.DeleteComment(ctx, s.DB, c.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("comment %w", ErrNotFound)
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}

// ListAll returns a page of comments across all stories, newest first, for
// moderation. Admins only.
func (s *CommentService) ListAll(ctx context.Context, who auth.Identity, page, pageSize int) ([]domain.Comment, int64, error) {
	if !who.IsAdmin() {
		return nil, 0, fmt.Errorf("%w: admin only", ErrForbidden)
	}
	pg := utils.NewPage(page, pageSize)
	total, err := repo.CountAllComments(ctx, s.DB)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if total == 0 {
		return []domain.Comment{}, 0, nil
	}
	items, err := repo.ListAllCommentsPage(ctx, s.DB, pg.Offset(), pg.Size)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return items, total, nil
}

// Stats returns the comment count and newest comment time of a story.
func (s *CommentService) Stats(ctx context.Context, storyID string) (int64, *time.Time, error) {
	n, latest, err := repo.CommentsStats(ctx, s.DB, storyID)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return n, latest, nil
}

// publicStory hides private and missing stories alike.
func (s *CommentService) publicStory(ctx context.Context, storyID string) (*domain.Story, error) {
	st, err := repo.GetStory(ctx, s.DB, strings.TrimSpace(storyID))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("story %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !st.IsPublic {
		return nil, fmt.Errorf("story %w", ErrNotFound)
	}
	return st, nil
}
