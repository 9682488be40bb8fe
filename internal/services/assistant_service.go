// Package services – AssistantService
//
// AssistantService runs the AI writing mentor: it validates an analysis
// request against the story, assembles the prompt, answers from the prompt
// cache or the completion provider, and threads the exchange into a
// conversation.
//
// Everything the request writes (a new cache entry, the conversation, the
// user message, and the AI message) is committed in one transaction.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-story-backend/internal/auth"
	"github.com/tbourn/go-story-backend/internal/domain"
	"github.com/tbourn/go-story-backend/internal/genre"
	"github.com/tbourn/go-story-backend/internal/llm"
	"github.com/tbourn/go-story-backend/internal/prompt"
	"github.com/tbourn/go-story-backend/internal/promptcache"
	"github.com/tbourn/go-story-backend/internal/repo"
)

const (
	summaryMaxRunes = 100
	noMessages      = "No messages"
	noAIResponse    = "No AI response"
)

// AnalyzeInput is one analysis request. Requester is nil for anonymous calls.
type AnalyzeInput struct {
	StoryID        string
	Content        string
	PromptType     string
	CustomPrompt   string
	ConversationID string
	Requester      *auth.Identity
}

// AnalyzeResult is the outcome of a successful analysis.
type AnalyzeResult struct {
	Message        *domain.Message `json:"message"`
	ConversationID string          `json:"conversation_id"`
	DetectedGenre  genre.Genre     `json:"detected_genre"`
}

// ConversationSummary is a conversation with its one-line summary.
type ConversationSummary struct {
	domain.Conversation
	Summary string `json:"summary"`
}

// AssistantService coordinates analysis requests.
type AssistantService struct {
	DB        *gorm.DB
	Provider  llm.Provider
	Cache     *promptcache.Cache
	Catalogue *prompt.Catalogue

	now func() time.Time
}

// NewAssistantService wires an AssistantService. A nil provider leaves the
// assistant unconfigured; a nil cache or catalogue gets the defaults.
func NewAssistantService(db *gorm.DB, p llm.Provider, c *promptcache.Cache, cat *prompt.Catalogue) *AssistantService {
	if c == nil {
		c = promptcache.New(db, 0)
	}
	if cat == nil {
		cat = prompt.Default()
	}
	return &AssistantService{DB: db, Provider: p, Cache: c, Catalogue: cat, now: time.Now}
}

// Configured reports whether a completion provider is available.
func (s *AssistantService) Configured() bool { return s.Provider != nil }

func (s *AssistantService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// Analyze answers one analysis request and records it in a conversation.
//
// Errors:
//   - ErrNotConfigured when there is no provider.
//   - ErrInvalidRequest for missing fields. An unknown prompt type or a
//     blank custom prompt is reported only after the story checks.
//   - ErrNotFound when the story, or a supplied conversation of that story,
//     does not exist.
//   - ErrForbidden when the story is private, whoever asks.
//   - ErrUpstream when the provider fails; nothing is persisted.
//   - ErrInternal when the store fails; nothing is persisted.
func (s *AssistantService) Analyze(ctx context.Context, in AnalyzeInput) (*AnalyzeResult, error) {
	tr := otel.Tracer("services/AssistantService")
	ctx, span := tr.Start(ctx, "Analyze",
		trace.WithAttributes(
			attribute.String("story.id", in.StoryID),
			attribute.String("prompt.type", in.PromptType),
		),
	)
	defer span.End()
	if in.Requester != nil {
		span.SetAttributes(attribute.String("user.id", in.Requester.UserID))
	}

	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	storyID := strings.TrimSpace(in.StoryID)
	// Whitespace-only content is present; the detector has a label for it.
	if storyID == "" || in.Content == "" || strings.TrimSpace(in.PromptType) == "" {
		return nil, fmt.Errorf("%w: missing required fields: story_id, content, prompt_type", ErrInvalidRequest)
	}

	story, err := repo.GetStory(ctx, s.DB, storyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("story %w", ErrNotFound)
		}
		return nil, s.internal(ctx, span, "load story", err)
	}
	if !story.IsPublic {
		return nil, fmt.Errorf("%w: cannot analyze private stories", ErrForbidden)
	}

	pt, ok := prompt.ParseType(in.PromptType)
	if !ok {
		return nil, fmt.Errorf("%w: invalid prompt type or missing custom prompt", ErrInvalidRequest)
	}
	var prefix string
	if pt == prompt.Custom {
		if strings.TrimSpace(in.CustomPrompt) == "" {
			return nil, fmt.Errorf("%w: invalid prompt type or missing custom prompt", ErrInvalidRequest)
		}
		prefix = in.CustomPrompt
	} else {
		prefix, _ = s.Catalogue.Template(pt)
	}

	convID := strings.TrimSpace(in.ConversationID)
	if convID != "" {
		conv, err := repo.GetConversation(ctx, s.DB, convID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, fmt.Errorf("conversation %w", ErrNotFound)
		case err != nil:
			return nil, s.internal(ctx, span, "load conversation", err)
		case conv.StoryID != story.ID:
			return nil, fmt.Errorf("conversation %w", ErrNotFound)
		}
	}

	g := genre.Detect(in.Content)
	assembled := prompt.Assemble(prefix, in.Content)
	digest := promptcache.Hash(assembled)
	span.SetAttributes(attribute.String("genre", g.String()), attribute.String("prompt.hash", digest))

	cached, err := s.Cache.Lookup(ctx, digest)
	if err != nil {
		return nil, s.internal(ctx, span, "cache lookup", err)
	}

	var response string
	if cached != nil {
		response = cached.Response
		s.Cache.RecordHit(ctx, digest)
	} else {
		system := s.Catalogue.BuildSystem(g)
		response, err = s.Cache.Fetch(ctx, digest, func(ctx context.Context) (string, error) {
			return s.Provider.Complete(ctx, system, assembled)
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "provider")
			zerolog.Ctx(ctx).Error().Err(err).Str("story_id", story.ID).Msg("completion provider failed")
			return nil, ErrUpstream
		}
	}

	// Microsecond precision survives every supported driver, so the AI
	// message sorts strictly after the user message.
	at := s.clock().UTC().Truncate(time.Microsecond)
	typ := string(pt)

	var aiMsg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cached == nil {
			cp, err := s.Cache.Store(ctx, tx, digest, assembled, response)
			if err != nil {
				return fmt.Errorf("store cache entry: %w", err)
			}
			response = cp.Response
		}

		if convID != "" {
			if err := repo.TouchConversation(ctx, tx, convID, at); err != nil {
				return fmt.Errorf("touch conversation: %w", err)
			}
		} else {
			conv, err := repo.CreateConversation(ctx, tx, story.ID, story.AuthorID, g.String(), s.Catalogue.ConversationTitle(story.Title))
			if err != nil {
				return fmt.Errorf("create conversation: %w", err)
			}
			convID = conv.ID
		}

		if _, err := repo.CreateMessage(ctx, tx, convID, true, assembled, &typ, at); err != nil {
			return fmt.Errorf("create user message: %w", err)
		}
		m, err := repo.CreateMessage(ctx, tx, convID, false, response, nil, at.Add(time.Microsecond))
		if err != nil {
			return fmt.Errorf("create ai message: %w", err)
		}
		aiMsg = m
		return nil
	})
	if err != nil {
		return nil, s.internal(ctx, span, "persist exchange", err)
	}

	if cached == nil {
		s.Cache.Prune(ctx)
	}

	zerolog.Ctx(ctx).Info().
		Str("story_id", story.ID).
		Str("conversation_id", convID).
		Str("genre", g.String()).
		Bool("cache_hit", cached != nil).
		Msg("analysis completed")

	return &AnalyzeResult{Message: aiMsg, ConversationID: convID, DetectedGenre: g}, nil
}

// Replay rebuilds the result of an earlier Analyze from its AI message.
// It backs idempotent retries.
func (s *AssistantService) Replay(ctx context.Context, messageID string) (*AnalyzeResult, error) {
	m, err := repo.GetMessage(ctx, s.DB, messageID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("message %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	conv, err := repo.GetConversation(ctx, s.DB, m.ConversationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("conversation %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &AnalyzeResult{Message: m, ConversationID: conv.ID, DetectedGenre: genre.Genre(conv.DetectedGenre)}, nil
}

// ListConversations returns the story's conversations, most recently
// updated first, each with its messages and summary.
func (s *AssistantService) ListConversations(ctx context.Context, storyID string) ([]ConversationSummary, error) {
	tr := otel.Tracer("services/AssistantService")
	ctx, span := tr.Start(ctx, "ListConversations",
		trace.WithAttributes(attribute.String("story.id", storyID)),
	)
	defer span.End()

	storyID = strings.TrimSpace(storyID)
	if storyID == "" {
		return nil, fmt.Errorf("%w: missing story_id parameter", ErrInvalidRequest)
	}
	convs, err := repo.ListConversationsByStory(ctx, s.DB, storyID)
	if err != nil {
		return nil, s.internal(ctx, span, "list conversations", err)
	}
	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, ConversationSummary{Conversation: c, Summary: Summary(c)})
	}
	return out, nil
}

// Stats returns the conversation count and latest update for a story, for
// cache validators.
func (s *AssistantService) Stats(ctx context.Context, storyID string) (int64, *time.Time, error) {
	n, latest, err := repo.ConversationsStats(ctx, s.DB, strings.TrimSpace(storyID))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return n, latest, nil
}

// Summary is the first line of the conversation's first AI message, clipped
// to 100 runes.
func Summary(c domain.Conversation) string {
	if len(c.Messages) == 0 {
		return noMessages
	}
	for _, m := range c.Messages {
		if m.IsUser {
			continue
		}
		line, _, _ := strings.Cut(m.Content, "\n")
		if utf8.RuneCountInString(line) > summaryMaxRunes {
			return string([]rune(line)[:summaryMaxRunes-3]) + "..."
		}
		return line
	}
	return noAIResponse
}

func (s *AssistantService) internal(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	zerolog.Ctx(ctx).Error().Err(err).Str("op", op).Msg("assistant store failure")
	return fmt.Errorf("%w: %s", ErrInternal, op)
}
