// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model
// (the credential store).
//
// Password hashing and token issuance live in the service layer; these
// functions only persist and query rows.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-story-backend/internal/domain"
)

// CreateUser inserts a new user. ID, Role and timestamps are defaulted when
// empty. A taken username yields ErrDuplicate.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetUserByUsername looks a user up by exact username.
func GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID fetches a user by primary key, or ErrNotFound.
func GetUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ProfilePatch carries optional profile updates; nil fields are untouched.
type ProfilePatch struct {
	Username        *string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
}

func (p ProfilePatch) columns() map[string]any {
	cols := map[string]any{}
	if p.Username != nil {
		cols["username"] = *p.Username
	}
	if p.FirstName != nil {
		cols["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		cols["last_name"] = *p.LastName
	}
	if p.ProfileImageURL != nil {
		cols["profile_image_url"] = *p.ProfileImageURL
	}
	return cols
}

// UpdateUserProfile applies patch to the user identified by id. It returns
// ErrNotFound if no such user exists and ErrDuplicate if the new username is
// already taken.
func UpdateUserProfile(ctx context.Context, db *gorm.DB, id string, patch ProfilePatch) error {
	cols := patch.columns()
	if len(cols) == 0 {
		// Still distinguish a missing user from a no-op.
		_, err := GetUserByID(ctx, db, id)
		return err
	}
	cols["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
