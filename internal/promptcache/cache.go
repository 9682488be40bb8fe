// Package promptcache memoizes completion responses by a digest of the exact
// prompt text.
//
// Entries are persisted in the ai_cache table through the repo layer. Writes
// are compare-and-swap on the unique digest: when two writers race, the first
// row wins and both callers observe it. Within one process, concurrent misses
// for the same digest share a single upstream call.
package promptcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tbourn/go-story-backend/internal/domain"
	"github.com/tbourn/go-story-backend/internal/repo"
)

var lookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "prompt_cache_lookups_total",
		Help: "Prompt cache lookups by result (hit|miss).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(lookups)
}

// Hash returns the lowercase hex SHA-256 digest of prompt.
func Hash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Cache is safe for concurrent use.
type Cache struct {
	db         *gorm.DB
	maxEntries int
	group      singleflight.Group
	now        func() time.Time
}

// New returns a Cache over db. maxEntries <= 0 keeps every entry.
func New(db *gorm.DB, maxEntries int) *Cache {
	return &Cache{db: db, maxEntries: maxEntries, now: time.Now}
}

// Lookup returns the entry for digest, or (nil, nil) on a miss.
func (c *Cache) Lookup(ctx context.Context, digest string) (*domain.CachedPrompt, error) {
	cp, err := repo.LookupPrompt(ctx, c.db, digest)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		lookups.WithLabelValues("miss").Inc()
		return nil, nil
	case err != nil:
		return nil, err
	}
	lookups.WithLabelValues("hit").Inc()
	return cp, nil
}

// RecordHit bumps the usage counters of digest. Failures are logged and
// swallowed: a stale counter must never fail a request.
func (c *Cache) RecordHit(ctx context.Context, digest string) {
	if err := repo.RecordPromptHit(ctx, c.db, digest, c.now()); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("prompt_hash", digest).Msg("prompt cache hit not recorded")
	}
}

// Fetch runs fn at most once per digest across concurrent callers; callers
// that arrive while a call is in flight wait for and share its result.
//
// The shared call runs detached from any one caller's cancellation, so a
// caller that gives up only abandons its own wait. fn must bound itself.
func (c *Cache) Fetch(ctx context.Context, digest string, fn func(context.Context) (string, error)) (string, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(digest, func() (any, error) {
		return fn(shared)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Store persists (digest, prompt, response) on tx unless an entry already
// exists, and returns the canonical entry. Pass the transaction the rest of
// the exchange is written in so a rollback discards the entry too.
func (c *Cache) Store(ctx context.Context, tx *gorm.DB, digest, prompt, response string) (*domain.CachedPrompt, error) {
	if tx == nil {
		tx = c.db
	}
	cp, _, err := repo.InsertPromptIfAbsent(ctx, tx, digest, prompt, response)
	return cp, err
}

// Prune enforces the entry cap by evicting least recently used entries.
// It is best-effort and logs failures.
func (c *Cache) Prune(ctx context.Context) {
	if c.maxEntries <= 0 {
		return
	}
	n, err := repo.PrunePromptCache(ctx, c.db, c.maxEntries)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("prompt cache prune failed")
		return
	}
	if n > 0 {
		zerolog.Ctx(ctx).Debug().Int64("evicted", n).Msg("prompt cache pruned")
	}
}
