package handlers

import (
	"context"
	"net/http"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/analytics"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/apierr"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/cache"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/errorreporting"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/logger"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/metrics"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/middleware"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/perf"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/query"
)

// QueryCacheStats is the cache view embedded in analytics responses.
type QueryCacheStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

func queryCacheStats(s cache.Stats) QueryCacheStats {
	keys := s.Keys
	if keys == nil {
		keys = []string{}
	}
	return QueryCacheStats{Size: s.Size, Keys: keys}
}

// AnalyticsData is the success payload of GET /api/analytics.
type AnalyticsData struct {
	analytics.Summary
	PerformanceMetrics *perf.Stats     `json:"performanceMetrics"`
	QueryCacheStats    QueryCacheStats `json:"queryCacheStats"`
}

// AnalyticsResponse wraps the analytics payload. Error, PerformanceMetrics
// and QueryCacheStats are set at the top level only on failure.
type AnalyticsResponse struct {
	Success            bool             `json:"success"`
	Data               *AnalyticsData   `json:"data,omitempty"`
	Error              string           `json:"error,omitempty"`
	Code               apierr.ErrorCode `json:"code,omitempty"`
	PerformanceMetrics *perf.Stats      `json:"performanceMetrics,omitempty"`
	QueryCacheStats    *QueryCacheStats `json:"queryCacheStats,omitempty"`
}

// AnalyticsHandler serves the dashboard summary.
type AnalyticsHandler struct {
	store    PatientLister
	opt      *query.Optimizer
	recorder *perf.Recorder
}

// NewAnalyticsHandler creates an analytics handler.
func NewAnalyticsHandler(store PatientLister, opt *query.Optimizer, rec *perf.Recorder) *AnalyticsHandler {
	return &AnalyticsHandler{store: store, opt: opt, recorder: rec}
}

func (h *AnalyticsHandler) summarize(ctx context.Context) (analytics.Summary, error) {
	patients, err := query.Do(ctx, h.opt, AllPatientsQuery, h.store.ListPatients)
	if err != nil {
		return analytics.Summary{}, err
	}
	return query.Do(ctx, h.opt, AnalyticsQuery, func(ctx context.Context) (analytics.Summary, error) {
		records, err := analytics.FromPatients(patients)
		if err != nil {
			return analytics.Summary{}, err
		}
		return analytics.Summarize(records), nil
	})
}

// requestStats returns the aggregate for this endpoint so far, or nil when
// nothing has been recorded yet.
func (h *AnalyticsHandler) requestStats(r *http.Request) *perf.Stats {
	if stats, ok := h.recorder.Metrics(middleware.OperationName(r)); ok {
		return &stats
	}
	return nil
}

// GetAnalytics returns totals, risk distribution and vital-sign trends along
// with this endpoint's latency stats and the query cache contents.
// GET /api/analytics
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.summarize(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Error calculating analytics", "error", err)
		errorreporting.CaptureErrorWithContext(err, map[string]string{"endpoint": "analytics"}, nil)

		apiErr := apierr.AnalyticsFailed("")
		stats := queryCacheStats(h.opt.CacheStats())
		writeJSON(w, apiErr.Status(), AnalyticsResponse{
			Success:            false,
			Error:              apiErr.Message,
			Code:               apiErr.Code,
			PerformanceMetrics: h.requestStats(r),
			QueryCacheStats:    &stats,
		})
		return
	}

	metrics.PatientsTotal.Set(float64(summary.TotalPatients))
	writeJSON(w, http.StatusOK, AnalyticsResponse{
		Success: true,
		Data: &AnalyticsData{
			Summary:            summary,
			PerformanceMetrics: h.requestStats(r),
			QueryCacheStats:    queryCacheStats(h.opt.CacheStats()),
		},
	})
}
