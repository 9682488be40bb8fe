// Package repo is the GORM persistence layer: connection setup for SQLite
// and PostgreSQL, versioned migrations, and one file of queries per model.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-story-backend/internal/domain"
)

type pool struct {
	maxOpen, maxIdle int
	idleTime         time.Duration
	lifetime         time.Duration
}

var (
	sqlitePool   = pool{maxOpen: 10, maxIdle: 10, idleTime: 5 * time.Minute, lifetime: 30 * time.Minute}
	postgresPool = pool{maxOpen: 25, maxIdle: 10, idleTime: 5 * time.Minute, lifetime: 30 * time.Minute}
)

// sqlitePragmas run on every new connection, not just the first one.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// Open opens the database selected by driver: "sqlite" takes a file path,
// "postgres" a connection URL.
func Open(driver, dsn string) (*gorm.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		return OpenSQLite(dsn)
	case "postgres", "postgresql":
		return OpenPostgres(dsn)
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
}

// OpenSQLite opens or creates the database file at path. The parent
// directory must exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("sqlite directory: %w", err)
		}
	}
	q := make([]string, len(sqlitePragmas))
	for i, p := range sqlitePragmas {
		q[i] = "_pragma=" + p
	}
	db, err := gorm.Open(sqlite.Open(path+"?"+strings.Join(q, "&")), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return configure(db, sqlitePool)
}

// OpenPostgres connects to PostgreSQL. Driver errors are translated so
// unique violations surface as gorm.ErrDuplicatedKey.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("DATABASE_URL must be set for postgres")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return configure(db, postgresPool)
}

func configure(db *gorm.DB, p pool) (*gorm.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(p.maxOpen)
	sqlDB.SetMaxIdleConns(p.maxIdle)
	sqlDB.SetConnMaxIdleTime(p.idleTime)
	sqlDB.SetConnMaxLifetime(p.lifetime)
	if err := instrument(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// instrument attaches OpenTelemetry spans to every GORM statement.
func instrument(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// migrations is the ordered schema history. Append only; never edit an
// applied migration.
func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202410010001_users_stories_comments",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.User{}, &domain.Story{}, &domain.Comment{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("comments", "stories", "users")
			},
		},
		{
			ID: "202410010002_ai_assistant",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.CachedPrompt{}, &domain.Conversation{}, &domain.Message{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("ai_messages", "ai_conversations", "ai_cache")
			},
		},
		{
			ID: "202410010003_idempotency",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.Idempotency{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("idempotency")
			},
		},
	}
}

// Migrate applies all pending migrations.
func Migrate(db *gorm.DB) error {
	return gormigrate.New(db, gormigrate.DefaultOptions, migrations()).Migrate()
}
