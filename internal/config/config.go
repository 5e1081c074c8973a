package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	// Server
	Port           int
	Env            string
	RequestTimeout time.Duration
	DatabaseURL    string
	// Database circuit breaker
	DBBreakerFailures int           // consecutive failures before the breaker opens
	DBBreakerTimeout  time.Duration // how long the breaker stays open
	// Result cache and query memoization
	CacheDefaultTTL    time.Duration // max-age used when a caller gives none
	CacheSweepInterval time.Duration // janitor period; 0 disables the sweep
	QueryMaxAge        time.Duration // default max-age for memoized queries
	// Performance thresholds
	QuerySlowThreshold   time.Duration // applied to query_<name> operations
	AnalyticsThreshold   time.Duration // GET /api/analytics
	DBOperationThreshold time.Duration // database_operation / database_connection
	// Dashboard
	AnalyticsUpdateInterval time.Duration // websocket snapshot period
	// Security settings
	RateLimitGlobal      float64  // requests per second globally
	RateLimitGlobalBurst int      // burst size for global rate limit
	RateLimitPerIP       float64  // requests per second per IP
	RateLimitPerIPBurst  int      // burst size for per-IP rate limit
	CORSAllowedOrigins   []string // allowed CORS origins
	EnableRateLimit      bool     // enable rate limiting middleware
	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	ServiceVersion    string  // reported to tracing and Sentry
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		Port:                    getEnvAsInt("PORT", 8000),
		Env:                     strings.ToLower(strings.TrimSpace(os.Getenv("ENV"))),
		RequestTimeout:          getEnvAsMillis("REQUEST_TIMEOUT_MS", 30000),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBBreakerFailures:       getEnvAsInt("DB_BREAKER_FAILURES", 5),
		DBBreakerTimeout:        getEnvAsMillis("DB_BREAKER_TIMEOUT_MS", 30*1000),
		CacheDefaultTTL:         getEnvAsMillis("CACHE_DEFAULT_TTL_MS", 5*60*1000),
		CacheSweepInterval:      getEnvAsMillis("CACHE_SWEEP_INTERVAL_MS", 60*1000),
		QueryMaxAge:             getEnvAsMillis("QUERY_MAX_AGE_MS", 5*60*1000),
		QuerySlowThreshold:      getEnvAsMillis("QUERY_SLOW_THRESHOLD_MS", 500),
		AnalyticsThreshold:      getEnvAsMillis("ANALYTICS_THRESHOLD_MS", 1000),
		DBOperationThreshold:    getEnvAsMillis("DB_OPERATION_THRESHOLD_MS", 1000),
		AnalyticsUpdateInterval: getEnvAsMillis("ANALYTICS_UPDATE_INTERVAL_MS", 5*60*1000),
		// Security settings with sensible defaults
		RateLimitGlobal:      getEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: getEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       getEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  getEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:      getEnvAsBool("ENABLE_RATE_LIMIT", true),
		// Observability settings
		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		ServiceVersion:    strings.TrimSpace(os.Getenv("SERVICE_VERSION")),
		OTELEnabled:       getEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    getEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  getEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.Env == "" {
		cached.Env = "development"
	}
	if cached.LogLevel == "" {
		cached.LogLevel = "info"
	}
	if cached.ServiceVersion == "" {
		cached.ServiceVersion = "dev"
	}
	if cached.SentryEnvironment == "" {
		cached.SentryEnvironment = cached.Env
	}
	if cached.SentryRelease == "" {
		cached.SentryRelease = cached.ServiceVersion
	}

	// Parse CORS allowed origins
	corsOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if corsOrigins == "" {
		// Default to common development origins
		cached.CORSAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	} else {
		cached.CORSAllowedOrigins = getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil, ",")
	}

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool { return c.Env == "production" }

// LogValue renders the effective configuration with secrets masked.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("port", c.Port),
		slog.String("env", c.Env),
		slog.String("database_url", MaskURL(c.DatabaseURL)),
		slog.Int("db_breaker_failures", c.DBBreakerFailures),
		slog.Duration("cache_default_ttl", c.CacheDefaultTTL),
		slog.Duration("cache_sweep_interval", c.CacheSweepInterval),
		slog.Duration("query_max_age", c.QueryMaxAge),
		slog.Duration("query_slow_threshold", c.QuerySlowThreshold),
		slog.Duration("analytics_threshold", c.AnalyticsThreshold),
		slog.Bool("rate_limit", c.EnableRateLimit),
		slog.Bool("otel", c.OTELEnabled),
		slog.String("sentry_dsn", Mask(c.SentryDSN)),
	)
}
