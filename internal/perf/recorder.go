// Package perf records latency samples per named operation and reports
// aggregate statistics over them.
//
// A Recorder is meant to be built once per process and shared by every
// caller. Samples are kept for the lifetime of the Recorder until Reset is
// called; there is no windowing or eviction.
//
//	rec := perf.NewRecorder(logger.WithComponent("perf"), clock.Real{})
//	rec.SetThreshold("GET /api/analytics", time.Second)
//
//	stop := rec.Start("GET /api/analytics")
//	defer stop()
package perf

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/clock"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/metrics"
)

// StopFunc finalizes a measurement and returns its elapsed time.
// Only the first call records a sample; later calls are no-ops that return
// the same elapsed time.
type StopFunc func() time.Duration

// Stats is the aggregate view over every sample recorded for one operation.
// All durations are in milliseconds.
type Stats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	P95     float64 `json:"p95"`
	P99     float64 `json:"p99"`
}

// Recorder stores latency samples and thresholds keyed by operation name.
type Recorder struct {
	mu         sync.RWMutex
	samples    map[string][]float64
	thresholds map[string]time.Duration

	clock clock.Clock
	log   *slog.Logger
}

// NewRecorder creates an empty recorder. A nil logger falls back to slog.Default
// and a nil clock to the system clock.
func NewRecorder(log *slog.Logger, c clock.Clock) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	if c == nil {
		c = clock.Real{}
	}
	return &Recorder{
		samples:    make(map[string][]float64),
		thresholds: make(map[string]time.Duration),
		clock:      c,
		log:        log,
	}
}

// Start begins a measurement of operation.
func (r *Recorder) Start(operation string) StopFunc {
	start := r.clock.Now()

	var (
		once    sync.Once
		elapsed time.Duration
	)
	return func() time.Duration {
		once.Do(func() {
			elapsed = r.clock.Since(start)
			if elapsed < 0 {
				elapsed = 0
			}
			r.record(operation, elapsed)
			r.checkThreshold(operation, elapsed)
		})
		return elapsed
	}
}

// Time runs fn as a measured operation.
func (r *Recorder) Time(operation string, fn func() error) error {
	stop := r.Start(operation)
	defer stop()
	return fn()
}

func (r *Recorder) record(operation string, d time.Duration) {
	r.mu.Lock()
	r.samples[operation] = append(r.samples[operation], toMillis(d))
	r.mu.Unlock()

	metrics.OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetThreshold sets the duration above which a completed measurement of
// operation logs a warning. It replaces any earlier threshold.
func (r *Recorder) SetThreshold(operation string, limit time.Duration) {
	r.mu.Lock()
	r.thresholds[operation] = limit
	r.mu.Unlock()
}

// Threshold returns the configured threshold for operation.
func (r *Recorder) Threshold(operation string) (time.Duration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	limit, ok := r.thresholds[operation]
	return limit, ok
}

func (r *Recorder) checkThreshold(operation string, d time.Duration) {
	limit, ok := r.Threshold(operation)
	if !ok || limit <= 0 || d <= limit {
		return
	}

	metrics.ThresholdViolations.WithLabelValues(operation).Inc()
	r.log.Warn("Performance threshold exceeded",
		"operation", operation,
		"duration_ms", math.Round(toMillis(d)*100)/100,
		"threshold_ms", toMillis(limit),
	)
}

// Metrics returns the aggregate statistics for operation, or false when no
// samples have been recorded for it.
func (r *Recorder) Metrics(operation string) (Stats, bool) {
	r.mu.RLock()
	samples := append([]float64(nil), r.samples[operation]...)
	r.mu.RUnlock()

	if len(samples) == 0 {
		return Stats{}, false
	}
	return summarize(samples), true
}

// Snapshot returns the statistics of every operation that has samples.
func (r *Recorder) Snapshot() map[string]Stats {
	r.mu.RLock()
	copied := make(map[string][]float64, len(r.samples))
	for op, s := range r.samples {
		if len(s) > 0 {
			copied[op] = append([]float64(nil), s...)
		}
	}
	r.mu.RUnlock()

	out := make(map[string]Stats, len(copied))
	for op, s := range copied {
		out[op] = summarize(s)
	}
	return out
}

// Operations returns the sorted names of operations with at least one sample.
func (r *Recorder) Operations() []string {
	r.mu.RLock()
	ops := make([]string, 0, len(r.samples))
	for op, s := range r.samples {
		if len(s) > 0 {
			ops = append(ops, op)
		}
	}
	r.mu.RUnlock()

	sort.Strings(ops)
	return ops
}

// Reset drops every recorded sample. Thresholds are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.samples = make(map[string][]float64)
	r.mu.Unlock()
}

// summarize sorts samples in place.
func summarize(samples []float64) Stats {
	sort.Float64s(samples)

	var sum float64
	for _, s := range samples {
		sum += s
	}

	return Stats{
		Count:   len(samples),
		Average: sum / float64(len(samples)),
		Max:     samples[len(samples)-1],
		Min:     samples[0],
		P95:     percentile(samples, 95),
		P99:     percentile(samples, 99),
	}
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
