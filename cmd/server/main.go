package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/api"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/api/handlers"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/cache"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/circuitbreaker"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/clock"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/config"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/db"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/errorreporting"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/logger"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/middleware"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/perf"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/query"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/server"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/tracing"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Env)
	if envErr != nil {
		logger.Info("No .env file found, using process environment")
	}
	logger.Info("Configuration loaded", "config", cfg)

	if err := run(cfg); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(tracing.Options{
		ServiceName:    "healthcare-api",
		ServiceVersion: cfg.ServiceVersion,
		Enabled:        cfg.OTELEnabled,
		Endpoint:       cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownTracing != nil {
			if err := shutdownTracing(ctx); err != nil {
				logger.Warn("Tracing shutdown failed", "error", err)
			}
		}
	}()

	if err := errorreporting.Init(errorreporting.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.SentryRelease,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		logger.Warn("Sentry disabled", "error", err)
	}
	defer errorreporting.Flush(2 * time.Second)

	rec := perf.NewRecorder(logger.WithComponent("perf"), clock.Real{})
	configureThresholds(rec, cfg)

	resultCache := cache.NewTTL(
		cache.WithDefaultTTL(cfg.CacheDefaultTTL),
		cache.WithSweepInterval(cfg.CacheSweepInterval),
	)
	optimizer := query.New(resultCache, rec, logger.WithComponent("query"), cfg.QueryMaxAge)

	conn, err := db.Open(ctx, cfg.DatabaseURL, rec)
	if err != nil {
		return err
	}
	logger.Info("Database connected")

	store := db.NewStore(db.New(conn), rec, circuitbreaker.New(circuitbreaker.Config{
		Name:             "database",
		FailureThreshold: cfg.DBBreakerFailures,
		Timeout:          cfg.DBBreakerTimeout,
	}))

	hub := handlers.NewHub(rec, optimizer, cfg.AnalyticsUpdateInterval)

	var limiter *middleware.RateLimiter
	if cfg.EnableRateLimit {
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			GlobalRPS:   cfg.RateLimitGlobal,
			GlobalBurst: cfg.RateLimitGlobalBurst,
			IPRPS:       cfg.RateLimitPerIP,
			IPBurst:     cfg.RateLimitPerIPBurst,
		})
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		cors.AllowedOrigins = cfg.CORSAllowedOrigins
	}

	router := api.NewRouter(api.Deps{
		Store:       store,
		DB:          conn,
		Breaker:     store,
		Optimizer:   optimizer,
		Recorder:    rec,
		Hub:         hub,
		CORS:        cors,
		RateLimiter: limiter,
	})

	srv := server.New(server.Options{
		Addr:           ":" + strconv.Itoa(cfg.Port),
		Handler:        router,
		RequestTimeout: cfg.RequestTimeout,
		Cache:          resultCache,
		Hub:            hub,
		RateLimiter:    limiter,
		DB:             conn,
		Recorder:       rec,
	})
	return srv.Run(ctx)
}

// configureThresholds registers the latency budgets that trigger warnings.
func configureThresholds(rec *perf.Recorder, cfg *config.Config) {
	rec.SetThreshold("GET /api/analytics", cfg.AnalyticsThreshold)
	rec.SetThreshold(db.OpConnect, cfg.DBOperationThreshold)
	rec.SetThreshold(db.OpQuery, cfg.DBOperationThreshold)
	for _, q := range []string{handlers.AllPatientsQuery, handlers.AnalyticsQuery} {
		rec.SetThreshold(query.MeasurementPrefix+q, cfg.QuerySlowThreshold)
	}
}
