// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, authentication, idempotency, and rate
// limiting.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-story-backend/docs"
	"github.com/tbourn/go-story-backend/internal/auth"
	"github.com/tbourn/go-story-backend/internal/config"
	"github.com/tbourn/go-story-backend/internal/http/handlers"
	"github.com/tbourn/go-story-backend/internal/http/middleware"
	"github.com/tbourn/go-story-backend/internal/llm"
	"github.com/tbourn/go-story-backend/internal/prompt"
	"github.com/tbourn/go-story-backend/internal/promptcache"
	"github.com/tbourn/go-story-backend/internal/services"
)

// Deps are the process-level resources the router builds services from.
type Deps struct {
	DB *gorm.DB
	// Redis backs the shared rate limiter when RATE_BACKEND=redis.
	Redis redis.Scripter
	// Provider answers assistant prompts. Nil leaves the assistant
	// unconfigured and POST /ai-assistant answers 500 not_configured.
	Provider llm.Provider
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Access log (redacting unless LOG_REDACT=false)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. gzip
//  8. CORS and Security headers, so browsers can read 401 and 429 bodies
//  9. Authenticate: optional bearer token; routes demand it where needed
//  10. Idempotency validator (keys by identity, before the limiter)
//  11. Rate limiter (per user/IP, bypass on replay)
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	db := deps.DB

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{middleware.HeaderIdempotencyKey},
		}))
	} else {
		r.Use(middleware.Logger())
	}
	r.Use(middleware.Recovery())

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.Use(limitBody(maxBody))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	// Dependency injection: services ← db/provider/cache
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	assistant := services.NewAssistantService(db, deps.Provider,
		promptcache.New(db, cfg.AI.CacheMaxEntries),
		prompt.ForLocale(cfg.AI.Locale),
	)
	idem := services.NewIdempotencyService(db, cfg.IdempotencyTTL)

	r.Use(middleware.Authenticate(tokens))
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope:  middleware.JSONFieldScope("story_id"),
		},
		idem.Exists,
	))
	r.Use(rateLimiter(deps, cfg))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		middleware.AbortError(c, http.StatusNotFound, handlers.ErrCodeNotFound, "Route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		middleware.AbortError(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "Method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "assistant": assistant.Configured()})
	})
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(handlers.Deps{
		Assistant:   assistant,
		Idempotency: idem,
		Auth:        services.NewAuthService(db, tokens),
		Stories:     services.NewStoryService(db),
		Comments:    services.NewCommentService(db),
	})

	requireAuth := middleware.RequireAuth()
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Assistant
		api.POST("/ai-assistant", h.Analyze)
		api.GET("/ai-assistant", h.ListConversations)

		// Accounts
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.GET("/me", requireAuth, h.Me)
		api.PATCH("/me", requireAuth, h.UpdateMe)

		// Stories
		api.GET("/stories", h.ListStories)
		api.GET("/stories/mine", requireAuth, h.ListMyStories)
		api.POST("/stories", requireAuth, h.CreateStory)
		api.GET("/stories/:id", h.GetStory)
		api.PUT("/stories/:id", requireAuth, h.UpdateStory)
		api.DELETE("/stories/:id", requireAuth, h.DeleteStory)

		// Comments
		api.GET("/stories/:id/comments", h.ListComments)
		api.POST("/stories/:id/comments", requireAuth, h.CreateComment)
		api.DELETE("/comments/:id", requireAuth, h.DeleteComment)

		// Moderation
		api.GET("/admin/comments", middleware.RequireAdmin(), h.AdminListComments)
	}
}

// rateLimiter picks the shared Redis limiter when configured and reachable
// through deps, and the in-process token bucket otherwise.
func rateLimiter(deps Deps, cfg config.Config) gin.HandlerFunc {
	if cfg.Rate.Backend == "redis" && deps.Redis != nil {
		return middleware.NewRedisLimiter(deps.Redis, int64(cfg.Rate.WindowLimit), cfg.Rate.Window, middleware.KeyByUserOrIP()).Handler()
	}
	return middleware.NewRateLimiter(cfg.Rate.RPS, cfg.Rate.Burst, middleware.KeyByUserOrIP()).Handler()
}

// corsMiddleware allows every origin when none are configured, otherwise
// only the allowlist (echoing the matching Origin).
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			"If-None-Match", middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders:    append([]string{"Content-Length"}, middleware.DefaultExposeHeaders...),
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// ACAO: * even without an Origin header (health checks, curl).
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps the request body at maxBytes. Reads past the cap fail,
// which handlers report as an invalid body.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
