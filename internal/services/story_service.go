// Package services – StoryService
//
// StoryService manages stories: authoring, visibility, listing, and search
// over public stories. Private stories behave as missing for everyone but
// their author.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-story-backend/internal/auth"
	"github.com/tbourn/go-story-backend/internal/domain"
	"github.com/tbourn/go-story-backend/internal/repo"
	"github.com/tbourn/go-story-backend/internal/search"
	"github.com/tbourn/go-story-backend/internal/utils"
)

// English and Spanish function words; they match nearly every story.
var searchStopwords = []string{
	"a", "an", "and", "the", "of", "to", "in", "on", "is", "it", "was",
	"el", "la", "los", "las", "de", "y", "en", "un", "una", "que",
}

// StoryInput is a new story.
type StoryInput struct {
	Title    string
	Content  string
	IsPublic bool
}

// StoryHit is a public story matched by a search query.
type StoryHit struct {
	domain.Story
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// StoryService implements story use-cases.
type StoryService struct {
	DB *gorm.DB

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// MaxSearchHits bounds how many ranked hits a query can page through.
	MaxSearchHits int
	// SearchOptions tune the per-query index.
	SearchOptions []search.Option
}

// NewStoryService returns a StoryService with default limits.
func NewStoryService(db *gorm.DB) *StoryService {
	return &StoryService{
		DB:            db,
		TitleMaxLen:   255,
		MaxSearchHits: 100,
		SearchOptions: []search.Option{
			search.WithStopwords(searchStopwords),
			search.WithMinParagraphRunes(3),
			search.WithMaxDocs(5000),
		},
	}
}

// Create stores a story authored by the caller.
func (s *StoryService) Create(ctx context.Context, who auth.Identity, in StoryInput) (*domain.Story, error) {
	tr := otel.Tracer("services/StoryService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", who.UserID)))
	defer span.End()

	title := s.clip(normalizeTitle(in.Title))
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidRequest)
	}
	st, err := repo.CreateStory(ctx, s.DB, who.UserID, title, in.Content, in.IsPublic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return st, nil
}

// Get returns a story the viewer may read. viewer is nil for anonymous calls.
func (s *StoryService) Get(ctx context.Context, storyID string, viewer *auth.Identity) (*domain.Story, error) {
	st, err := repo.GetStory(ctx, s.DB, strings.TrimSpace(storyID))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("story %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !st.IsPublic && (viewer == nil || viewer.UserID != st.AuthorID) {
		return nil, fmt.Errorf("story %w", ErrNotFound)
	}
	return st, nil
}

// ListPublic returns a page of public stories, newest first, and the total.
func (s *StoryService) ListPublic(ctx context.Context, page, pageSize int) ([]domain.Story, int64, error) {
	tr := otel.Tracer("services/StoryService")
	ctx, span := tr.Start(ctx, "ListPublic",
		trace.WithAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize)),
	)
	defer span.End()

	pg := utils.NewPage(page, pageSize)
	total, err := repo.CountPublicStories(ctx, s.DB)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if total == 0 {
		return []domain.Story{}, 0, nil
	}
	items, err := repo.ListPublicStoriesPage(ctx, s.DB, pg.Offset(), pg.Size)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return items, total, nil
}

// ListMine returns every story of the caller, public or not.
func (s *StoryService) ListMine(ctx context.Context, who auth.Identity) ([]domain.Story, error) {
	items, err := repo.ListStoriesByAuthor(ctx, s.DB, who.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return items, nil
}

// Update applies patch to a story of the caller.
func (s *StoryService) Update(ctx context.Context, who auth.Identity, storyID string, patch repo.StoryPatch) (*domain.Story, error) {
	tr := otel.Tracer("services/StoryService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(attribute.String("story.id", storyID)))
	defer span.End()

	if patch.Title != nil {
		t := s.clip(normalizeTitle(*patch.Title))
		if t == "" {
			return nil, fmt.Errorf("%w: title cannot be blank", ErrInvalidRequest)
		}
		patch.Title = &t
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		return nil, fmt.Errorf("%w: content cannot be blank", ErrInvalidRequest)
	}
	if err := s.authorize(ctx, who, storyID); err != nil {
		return nil, err
	}
	if err := repo.UpdateStory(ctx, s.DB, storyID, who.UserID, patch); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("story %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	st, err := repo.GetStory(ctx, s.DB, storyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return st, nil
}

// Delete removes a story of the caller with its comments and conversations.
func (s *StoryService) Delete(ctx context.Context, who auth.Identity, storyID string) error {
	tr := otel.Tracer("services/StoryService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("story.id", storyID)))
	defer span.End()

	if err := s.authorize(ctx, who, storyID); err != nil {
		return err
	}
	if err := repo.DeleteStory(ctx, s.DB, storyID, who.UserID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("story %w", ErrNotFound)
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}

// Search ranks public stories against q and returns one page of hits and
// the number of hits.
func (s *StoryService) Search(ctx context.Context, q string, page, pageSize int) ([]StoryHit, int, error) {
	tr := otel.Tracer("services/StoryService")
	ctx, span := tr.Start(ctx, "Search", trace.WithAttributes(attribute.String("query", q)))
	defer span.End()

	if strings.TrimSpace(q) == "" {
		return nil, 0, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	pg := utils.NewPage(page, pageSize)

	stories, err := repo.ListPublicStoriesPage(ctx, s.DB, 0, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	docs := make([]search.Document, len(stories))
	byID := make(map[string]domain.Story, len(stories))
	for i, st := range stories {
		docs[i] = search.Document{ID: st.ID, Title: st.Title, Body: st.Content}
		byID[st.ID] = st
	}

	hits := search.NewIndex(docs, s.SearchOptions...).TopK(q, s.MaxSearchHits)
	total := len(hits)
	start, end := pg.Bounds(total)
	if start == end {
		return []StoryHit{}, total, nil
	}

	out := make([]StoryHit, 0, end-start)
	for _, h := range hits[start:end] {
		out = append(out, StoryHit{Story: byID[h.ID], Score: h.Score, Snippet: h.Snippet})
	}
	return out, total, nil
}

// authorize distinguishes a missing story from one owned by someone else.
func (s *StoryService) authorize(ctx context.Context, who auth.Identity, storyID string) error {
	st, err := repo.GetStory(ctx, s.DB, storyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("story %w", ErrNotFound)
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if st.AuthorID != who.UserID {
		return fmt.Errorf("%w: only the author can change this story", ErrForbidden)
	}
	return nil
}

// clip truncates a title to the configured maximum rune length.
func (s *StoryService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

var whitespaceRE = regexp.MustCompile(`\s+`)
