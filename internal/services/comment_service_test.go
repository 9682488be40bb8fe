package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-story-backend/internal/auth"
	"github.com/tbourn/go-story-backend/internal/domain"
	"github.com/tbourn/go-story-backend/internal/repo"
)

func TestCommentCreate(t *testing.T) {
	db := newTestDB(t)
	s := NewCommentService(db)
	ctx := context.Background()
	author := seedUser(t, db, "author", domain.RoleUser)
	reader := seedUser(t, db, "reader", domain.RoleUser)
	require.NoError(t, repo.UpdateUserProfile(ctx, db, reader.UserID, repo.ProfilePatch{FirstName: strp("Rae"), LastName: strp("Reed")}))
	pub := seedStory(t, db, author.UserID, "Open", "body", true)
	priv := seedStory(t, db, author.UserID, "Closed", "body", false)

	c, err := s.Create(ctx, reader, pub.ID, "  Loved it  ")
	require.NoError(t, err)
	assert.Equal(t, "Loved it", c.Content)
	assert.Equal(t, "Rae Reed", c.AuthorName)

	_, err = s.Create(ctx, reader, priv.ID, "hello")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Create(ctx, reader, "missing", "hello")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Create(ctx, reader, pub.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	s.MaxContentRunes = 3
	_, err = s.Create(ctx, reader, pub.ID, strings.Repeat("x", 4))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = NewCommentService(db).Create(ctx, auth.Identity{UserID: "ghost"}, pub.ID, "hi")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCommentList(t *testing.T) {
	db := newTestDB(t)
	s := NewCommentService(db)
	ctx := context.Background()
	author := seedUser(t, db, "author", domain.RoleUser)
	pub := seedStory(t, db, author.UserID, "Open", "body", true)
	priv := seedStory(t, db, author.UserID, "Closed", "body", false)

	for _, txt := range []string{"first", "second"} {
		_, err := s.Create(ctx, author, pub.ID, txt)
		require.NoError(t, err)
	}
	items, err := s.List(ctx, pub.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Content)

	n, latest, err := s.Stats(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NotNil(t, latest)

	_, err = s.List(ctx, priv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommentDelete_AuthorOrAdmin(t *testing.T) {
	db := newTestDB(t)
	s := NewCommentService(db)
	ctx := context.Background()
	author := seedUser(t, db, "author", domain.RoleUser)
	other := seedUser(t, db, "other", domain.RoleUser)
	admin := seedUser(t, db, "admin", domain.RoleAdmin)
	st := seedStory(t, db, author.UserID, "Open", "body", true)

	c1, err := s.Create(ctx, author, st.ID, "mine")
	require.NoError(t, err)
	c2, err := s.Create(ctx, author, st.ID, "also mine")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(ctx, other, c1.ID), ErrForbidden)
	require.NoError(t, s.Delete(ctx, author, c1.ID))
	require.NoError(t, s.Delete(ctx, admin, c2.ID))
	assert.ErrorIs(t, s.Delete(ctx, admin, c2.ID), ErrNotFound)
}

func TestCommentListAll_AdminOnly(t *testing.T) {
	db := newTestDB(t)
	s := NewCommentService(db)
	ctx := context.Background()
	author := seedUser(t, db, "author", domain.RoleUser)
	admin := seedUser(t, db, "admin", domain.RoleAdmin)

	_, _, err := s.ListAll(ctx, author, 1, 10)
	assert.ErrorIs(t, err, ErrForbidden)

	items, total, err := s.ListAll(ctx, admin, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	st := seedStory(t, db, author.UserID, "Open", "body", true)
	_, err = s.Create(ctx, author, st.ID, "hi")
	require.NoError(t, err)

	items, total, err = s.ListAll(ctx, admin, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "Open", items[0].StoryTitle)
}
