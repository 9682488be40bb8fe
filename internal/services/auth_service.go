// Package services – AuthService
//
// AuthService owns accounts: registration, login, and the caller's profile.
// Passwords are stored as bcrypt hashes; login answers with a signed session
// token.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
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
)

var usernameRE = regexp.MustCompile(`^[\p{L}\p{N}_.\-]{3,64}$`)

// dummyHash is compared against when the username is unknown, so a failed
// login costs the same either way.
var dummyHash, _ = auth.HashPassword("not-a-real-password")

// RegisterInput carries a new account.
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// LoginResult is a session token and the account it belongs to.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// AuthService implements account use-cases.
type AuthService struct {
	DB     *gorm.DB
	Tokens *auth.Tokens

	// MinPasswordRunes rejects shorter passwords on register.
	MinPasswordRunes int
}

// NewAuthService returns an AuthService with an 8-rune password minimum.
func NewAuthService(db *gorm.DB, tokens *auth.Tokens) *AuthService {
	return &AuthService{DB: db, Tokens: tokens, MinPasswordRunes: 8}
}

// Register creates a user with role "user".
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Register")
	defer span.End()

	username := strings.TrimSpace(in.Username)
	if !usernameRE.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-64 letters, digits, '.', '_' or '-'", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(in.Password) < s.MinPasswordRunes {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRequest, s.MinPasswordRunes)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", ErrInternal, err)
	}

	u := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return u, nil
}

// Login checks the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	u, err := repo.GetUserByUsername(ctx, s.DB, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			auth.CheckPassword(dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.Tokens.Issue(identityOf(u))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return &LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, who auth.Identity) (*domain.User, error) {
	u, err := repo.GetUserByID(ctx, s.DB, who.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return u, nil
}

// UpdateProfile applies the non-nil fields of patch to the caller's account.
func (s *AuthService) UpdateProfile(ctx context.Context, who auth.Identity, patch repo.ProfilePatch) (*domain.User, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "UpdateProfile",
		trace.WithAttributes(attribute.String("user.id", who.UserID)),
	)
	defer span.End()

	if patch.Username != nil {
		name := strings.TrimSpace(*patch.Username)
		if !usernameRE.MatchString(name) {
			return nil, fmt.Errorf("%w: username must be 3-64 letters, digits, '.', '_' or '-'", ErrInvalidRequest)
		}
		patch.Username = &name
	}
	for _, f := range []*string{patch.FirstName, patch.LastName, patch.ProfileImageURL} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}

	if err := repo.UpdateUserProfile(ctx, s.DB, who.UserID, patch); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return nil, ErrUsernameTaken
		case errors.Is(err, repo.ErrNotFound):
			return nil, fmt.Errorf("user %w", ErrNotFound)
		default:
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}
	return s.Me(ctx, who)
}

func identityOf(u *domain.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}
