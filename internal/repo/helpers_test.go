package repo

import (
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-story-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// One connection keeps PRAGMAs and the shared cache consistent.
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

// allModels returns every persisted model in dependency order.
func allModels() []any {
	return []any{
		&domain.User{}, &domain.Story{}, &domain.Comment{},
		&domain.CachedPrompt{}, &domain.Conversation{}, &domain.Message{},
		&domain.Idempotency{},
	}
}

func seedUser(t *testing.T, db *gorm.DB, id, username string) *domain.User {
	t.Helper()
	u := &domain.User{ID: id, Username: username, PasswordHash: "x", Role: domain.RoleUser}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedStory(t *testing.T, db *gorm.DB, id, authorID, title string, public bool) *domain.Story {
	t.Helper()
	s := &domain.Story{ID: id, Title: title, Content: "Once upon a time.", IsPublic: public, AuthorID: authorID}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed story: %v", err)
	}
	return s
}
