// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database access, rate limiting, the AI
// writing assistant, session tokens, and observability.
package config

import (
	"errors"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/tbourn/go-story-backend/internal/sysutil"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-story-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and addresses the relational store.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH (sqlite file)
	URL    string // DATABASE_URL (postgres)
}

// DSN returns the connection string for the configured driver.
func (d DBConfig) DSN() string {
	if d.Driver == "postgres" {
		return d.URL
	}
	return d.Path
}

// RateConfig configures request throttling.
type RateConfig struct {
	RPS         float64       // RATE_RPS, tokens per second (>= 0), memory backend
	Burst       int           // RATE_BURST, bucket size (>= 1), memory backend
	Backend     string        // RATE_BACKEND: memory|redis
	RedisURL    string        // REDIS_URL, e.g. redis://localhost:6379/0
	WindowLimit int           // RATE_WINDOW_LIMIT, requests per window (redis backend)
	Window      time.Duration // RATE_WINDOW
}

// AIConfig configures the completion provider and the prompt cache.
type AIConfig struct {
	APIKey          string        // OPENAI_API_KEY; empty disables the assistant
	Model           string        // OPENAI_MODEL
	BaseURL         string        // OPENAI_BASE_URL (optional; OpenAI-compatible endpoints)
	Timeout         time.Duration // OPENAI_TIMEOUT, per completion call
	MaxTokens       int           // OPENAI_MAX_TOKENS
	Temperature     float64       // OPENAI_TEMPERATURE in [0,2]
	Locale          string        // ASSISTANT_LOCALE, BCP 47 tag matched against the catalogues
	CacheMaxEntries int           // CACHE_MAX_ENTRIES; 0 = unbounded
}

// Enabled reports whether a provider credential is configured.
func (a AIConfig) Enabled() bool { return strings.TrimSpace(a.APIKey) != "" }

// AuthConfig configures session token issuance.
type AuthConfig struct {
	JWTSecret string        // JWT_SECRET
	TokenTTL  time.Duration // JWT_TTL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // MAX_BODY_BYTES, request body cap
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	LogRedact      bool   // LOG_REDACT: scrub secrets from access logs
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DB DBConfig

	// Rate limiting
	Rate RateConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig

	// AI assistant
	AI AIConfig

	// Auth
	Auth AuthConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              sysutil.FirstNonEmpty(os.Getenv("PORT"), os.Getenv("HTTP_PORT"), "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		LogRedact:      getbool("LOG_REDACT", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "app.db"),
			URL:    getenv("DATABASE_URL", ""),
		},

		// Rate limiting
		Rate: RateConfig{
			RPS:         getfloat("RATE_RPS", 5.0),
			Burst:       getint("RATE_BURST", 10),
			Backend:     strings.ToLower(getenv("RATE_BACKEND", "memory")),
			RedisURL:    getenv("REDIS_URL", "redis://localhost:6379/0"),
			WindowLimit: getint("RATE_WINDOW_LIMIT", 120),
			Window:      getdur("RATE_WINDOW", time.Minute),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-story-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},

		// AI assistant
		AI: AIConfig{
			APIKey:          getenv("OPENAI_API_KEY", ""),
			Model:           getenv("OPENAI_MODEL", "gpt-4"),
			BaseURL:         getenv("OPENAI_BASE_URL", ""),
			Timeout:         getdur("OPENAI_TIMEOUT", 60*time.Second),
			MaxTokens:       getint("OPENAI_MAX_TOKENS", 1000),
			Temperature:     getfloat("OPENAI_TEMPERATURE", 0.7),
			Locale:          strings.ToLower(getenv("ASSISTANT_LOCALE", "en")),
			CacheMaxEntries: getint("CACHE_MAX_ENTRIES", 0),
		},

		// Auth
		Auth: AuthConfig{
			JWTSecret: getenv("JWT_SECRET", ""),
			TokenTTL:  getdur("JWT_TTL", 24*time.Hour),
		},
	}

	cfg.normalize()
	return cfg, cfg.Validate()
}

func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
	if c.DB.Driver == "postgresql" {
		c.DB.Driver = "postgres"
	}
	if c.Auth.JWTSecret == "" && c.GinMode != "release" {
		// Local runs get a throwaway secret; tokens die with the process.
		c.Auth.JWTSecret = "dev-insecure-secret"
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	check(slices.Contains([]string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}, c.LogLevel),
		"LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(c.MaxBodyBytes > 0, "MAX_BODY_BYTES must be > 0")

	switch c.DB.Driver {
	case "sqlite":
		check(strings.TrimSpace(c.DB.Path) != "", "DB_PATH must not be empty")
	case "postgres":
		check(strings.TrimSpace(c.DB.URL) != "", "DATABASE_URL must be set when DB_DRIVER=postgres")
	default:
		check(false, "DB_DRIVER must be one of: sqlite, postgres")
	}

	check(c.Rate.RPS >= 0, "RATE_RPS must be >= 0")
	check(c.Rate.Burst >= 1, "RATE_BURST must be >= 1")
	switch c.Rate.Backend {
	case "memory":
	case "redis":
		check(strings.TrimSpace(c.Rate.RedisURL) != "", "REDIS_URL must be set when RATE_BACKEND=redis")
		check(c.Rate.WindowLimit >= 1 && c.Rate.Window > 0, "RATE_WINDOW_LIMIT must be >= 1 and RATE_WINDOW > 0")
	default:
		check(false, "RATE_BACKEND must be one of: memory, redis")
	}

	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	check(c.AI.Timeout > 0, "OPENAI_TIMEOUT must be > 0")
	check(c.AI.MaxTokens >= 1, "OPENAI_MAX_TOKENS must be >= 1")
	check(c.AI.Temperature >= 0 && c.AI.Temperature <= 2, "OPENAI_TEMPERATURE must be in [0,2]")
	check(c.AI.CacheMaxEntries >= 0, "CACHE_MAX_ENTRIES must be >= 0")

	check(c.Auth.JWTSecret != "", "JWT_SECRET must be set in release mode")
	check(c.Auth.TokenTTL > 0, "JWT_TTL must be > 0")

	return errors.Join(errs...)
}
