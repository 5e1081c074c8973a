package handlers

import (
	"net/http"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/apierr"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/logger"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/perf"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/query"
)

// PerfHandler exposes the recorder and the query cache for inspection.
type PerfHandler struct {
	recorder *perf.Recorder
	opt      *query.Optimizer
	hub      *Hub
}

// NewPerfHandler creates a new perf admin handler. When hub is set, clearing
// the cache or resetting metrics pushes a snapshot to dashboard clients.
func NewPerfHandler(rec *perf.Recorder, opt *query.Optimizer, hub *Hub) *PerfHandler {
	return &PerfHandler{recorder: rec, opt: opt, hub: hub}
}

func (h *PerfHandler) publish() {
	if h.hub != nil {
		h.hub.Publish()
	}
}

// GetMetrics returns the stats for every operation, or for one when
// ?operation= is given.
// GET /api/perf/metrics
func (h *PerfHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if op := r.URL.Query().Get("operation"); op != "" {
		stats, ok := h.recorder.Metrics(op)
		if !ok {
			apierr.WriteErrorWithContext(w, r, apierr.PerfNoSamples(op))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"operation": op,
			"metrics":   stats,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"operations": h.recorder.Snapshot(),
	})
}

// GetCacheStats returns the live query cache keys and counters.
// GET /api/perf/cache
func (h *PerfHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.opt.CacheStats()
	if stats.Keys == nil {
		stats.Keys = []string{}
	}
	writeJSON(w, http.StatusOK, stats)
}

// ClearCache drops every memoized query result.
// POST /api/perf/cache/clear
func (h *PerfHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.opt.ClearCache()
	h.publish()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Query cache cleared",
	})
}

// ResetMetrics discards all samples. Thresholds are kept.
// POST /api/perf/reset
func (h *PerfHandler) ResetMetrics(w http.ResponseWriter, r *http.Request) {
	h.recorder.Reset()
	h.publish()
	logger.InfoContext(r.Context(), "Performance metrics reset")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Performance metrics reset",
	})
}
