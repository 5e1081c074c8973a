package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/cache"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/db"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/middleware"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/perf"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/query"
)

type emptyStore struct{}

func (emptyStore) ListPatients(ctx context.Context) ([]db.Patient, error) { return nil, nil }
func (emptyStore) CreatePatient(ctx context.Context, arg db.CreatePatientParams) (db.Patient, error) {
	return db.Patient{ID: 1, Name: arg.Name, Age: arg.Age, Gender: arg.Gender}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *perf.Recorder) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	rec := perf.NewRecorder(log, nil)
	return NewRouter(Deps{
		Store:     emptyStore{},
		Optimizer: query.New(cache.NewTTL(), rec, log, 0),
		Recorder:  rec,
	}), rec
}

// TestRoutesRegistered only checks registration; handler behavior is
// covered in the handlers package.
func TestRoutesRegistered(t *testing.T) {
	router, _ := newTestRouter(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/ready"},
		{http.MethodGet, "/metrics"},
		{http.MethodGet, "/api/patients"},
		{http.MethodGet, "/api/analytics"},
		{http.MethodGet, "/api/perf/metrics"},
		{http.MethodGet, "/api/perf/cache"},
		{http.MethodPost, "/api/perf/cache/clear"},
		{http.MethodPost, "/api/perf/reset"},
	}
	for _, rt := range routes {
		req := httptest.NewRequest(rt.method, rt.path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code == http.StatusNotFound || rr.Code == http.StatusMethodNotAllowed {
			t.Errorf("%s %s not registered: %d", rt.method, rt.path, rr.Code)
		}
	}
}

func TestRouter_InstrumentsRequests(t *testing.T) {
	router, rec := newTestRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/analytics", nil))

	if _, ok := rec.Metrics("GET /api/analytics"); !ok {
		t.Error("expected GET /api/analytics to be measured")
	}
	if _, ok := rec.Metrics("query_all_patients"); !ok {
		t.Error("expected the patient query to be measured")
	}
}

func TestRouter_MiddlewareHeaders(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request ID header")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if rr.Header().Get("Content-Encoding") != "gzip" {
		t.Errorf("Content-Encoding = %q", rr.Header().Get("Content-Encoding"))
	}
	if !strings.Contains(rr.Header().Get("Vary"), "Accept-Encoding") {
		t.Errorf("Vary = %q", rr.Header().Get("Vary"))
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/patients", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Error("preflight should allow the dashboard origin")
	}
}

func TestRouter_RateLimit(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	rec := perf.NewRecorder(log, nil)
	rl := middleware.NewRateLimiter(middleware.RateLimitConfig{GlobalRPS: 1, GlobalBurst: 1, IPRPS: 1, IPBurst: 1})
	defer rl.Stop()

	router := NewRouter(Deps{
		Store:       emptyStore{},
		Optimizer:   query.New(cache.NewTTL(), rec, log, 0),
		Recorder:    rec,
		RateLimiter: rl,
	})

	codes := make([]int, 2)
	for i := range codes {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes[i] = rr.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
}

func TestRouter_OptionsOnUnknownPathsAddNoOperations(t *testing.T) {
	router, rec := newTestRouter(t)

	for i := 0; i < 100; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/junk/"+strconv.Itoa(i), nil))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("OPTIONS /junk/%d status = %d", i, rr.Code)
		}
	}

	if ops := rec.Operations(); len(ops) != 0 {
		t.Errorf("OPTIONS requests should not be recorded, got %d operations", len(ops))
	}
}

func TestRouter_PreflightIsNotEncoded(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/patients", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Accept-Encoding", "gzip, br")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rr.Code)
	}
	if enc := rr.Header().Get("Content-Encoding"); enc != "" {
		t.Errorf("Content-Encoding = %q on a bodiless response", enc)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("preflight body should be empty, got %d bytes", rr.Body.Len())
	}
}
