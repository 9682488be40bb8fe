package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-story-backend/internal/auth"
	"github.com/tbourn/go-story-backend/internal/domain"
	"github.com/tbourn/go-story-backend/internal/repo"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db.Exec("PRAGMA foreign_keys=ON;")
	require.NoError(t, repo.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) auth.Identity {
	t.Helper()
	u := &domain.User{Username: username, PasswordHash: "x", Role: role}
	require.NoError(t, repo.CreateUser(context.Background(), db, u))
	return auth.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func seedStory(t *testing.T, db *gorm.DB, authorID, title, content string, public bool) *domain.Story {
	t.Helper()
	st, err := repo.CreateStory(context.Background(), db, authorID, title, content, public)
	require.NoError(t, err)
	return st
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// fakeProvider answers with a fixed reply and records every call.
type fakeProvider struct {
	reply string
	err   error
	calls atomic.Int32

	mu      sync.Mutex
	systems []string
	users   []string
}

func (f *fakeProvider) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.systems = append(f.systems, systemPrompt)
	f.users = append(f.users, userPrompt)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

// gatedProvider holds every call until release is closed and numbers its
// replies, so concurrent callers can be lined up deterministically.
type gatedProvider struct {
	release chan struct{}
	arrived chan struct{}
	calls   atomic.Int32
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{release: make(chan struct{}), arrived: make(chan struct{}, 8)}
}

func (g *gatedProvider) Complete(ctx context.Context, _, _ string) (string, error) {
	n := g.calls.Add(1)
	g.arrived <- struct{}{}
	select {
	case <-g.release:
		return fmt.Sprintf("reply %d", n), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
