// Package query memoizes expensive read operations behind a time-bounded
// result cache and times every call through a perf.Recorder.
//
// Concurrent misses on the same key are not de-duplicated: each caller runs
// its own producer and the last one to finish wins the cache slot. A miss
// that started before an Invalidate can therefore write back a value
// produced from the old data, which then lives until its max-age.
package query

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/cache"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/metrics"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/perf"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/tracing"
)

// DefaultMaxAge is how long a produced value stays cached unless WithMaxAge
// says otherwise.
const DefaultMaxAge = 5 * time.Minute

// MeasurementPrefix is prepended to the query name to form the operation
// name recorded for each call.
const MeasurementPrefix = "query_"

// Producer computes the value for a query on a cache miss.
type Producer func(ctx context.Context) (any, error)

// Optimizer wraps producers with the result cache and timing.
type Optimizer struct {
	cache    cache.Cache
	recorder *perf.Recorder
	log      *slog.Logger
	maxAge   time.Duration
}

// New creates an Optimizer. defaultMaxAge <= 0 selects DefaultMaxAge.
func New(c cache.Cache, rec *perf.Recorder, log *slog.Logger, defaultMaxAge time.Duration) *Optimizer {
	if log == nil {
		log = slog.Default()
	}
	if defaultMaxAge <= 0 {
		defaultMaxAge = DefaultMaxAge
	}
	return &Optimizer{
		cache:    c,
		recorder: rec,
		log:      log,
		maxAge:   defaultMaxAge,
	}
}

type options struct {
	useCache bool
	cacheKey string
	maxAge   time.Duration
}

// Option tunes a single Query call.
type Option func(*options)

// WithoutCache runs the producer on every call and never writes the cache.
func WithoutCache() Option {
	return func(o *options) { o.useCache = false }
}

// WithCacheKey stores the result under key instead of the query name.
func WithCacheKey(key string) Option {
	return func(o *options) { o.cacheKey = key }
}

// WithMaxAge sets how long the produced value stays valid.
func WithMaxAge(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxAge = d
		}
	}
}

func (o *Optimizer) resolve(name string, opts []Option) options {
	cfg := options{useCache: true, cacheKey: name, maxAge: o.maxAge}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cacheKey == "" {
		cfg.cacheKey = name
	}
	return cfg
}

// Query returns the cached value for name when one is live, otherwise runs
// produce, caches its result and returns it. A producer error is logged and
// returned unchanged; nothing is cached for it.
func (o *Optimizer) Query(ctx context.Context, name string, produce Producer, opts ...Option) (any, error) {
	return o.run(ctx, name, produce, nil, o.resolve(name, opts))
}

// run is shared by Query and Do. accept, when set, rejects cached values of
// the wrong type so they are recomputed.
func (o *Optimizer) run(ctx context.Context, name string, produce Producer, accept func(any) bool, cfg options) (any, error) {
	stop := o.recorder.Start(MeasurementPrefix + name)
	defer stop()

	ctx, span := tracing.StartSpan(ctx, "query."+name)
	defer span.End()
	span.SetAttributes(
		attribute.String("query.cache_key", cfg.cacheKey),
		attribute.Bool("query.use_cache", cfg.useCache),
	)

	if cfg.useCache {
		if v, ok := o.cache.Get(cfg.cacheKey); ok && (accept == nil || accept(v)) {
			metrics.QueryCacheHits.WithLabelValues(name).Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return v, nil
		}
		metrics.QueryCacheMisses.WithLabelValues(name).Inc()
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err := produce(ctx)
	if err != nil {
		metrics.QueryErrors.WithLabelValues(name).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.log.ErrorContext(ctx, "Query optimization error", "query", name, "error", err)
		return nil, err
	}

	if cfg.useCache {
		o.cache.Set(cfg.cacheKey, result, cfg.maxAge)
	}
	return result, nil
}

// Do is the typed form of Query.
func Do[T any](ctx context.Context, o *Optimizer, name string, produce func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	v, err := o.run(ctx, name, func(ctx context.Context) (any, error) {
		return produce(ctx)
	}, func(v any) bool {
		_, ok := v.(T)
		return ok
	}, o.resolve(name, opts))

	out, _ := v.(T)
	return out, err
}

// Invalidate removes the cached value stored under key.
func (o *Optimizer) Invalidate(key string) {
	o.cache.Delete(key)
}

// ClearCache drops every cached result.
func (o *Optimizer) ClearCache() {
	o.cache.Clear()
	o.log.Info("Query cache cleared")
}

// CacheStats reports the live cache contents.
func (o *Optimizer) CacheStats() cache.Stats {
	return o.cache.Stats()
}
