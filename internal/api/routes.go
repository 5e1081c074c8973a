package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/api/handlers"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/middleware"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/perf"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/query"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Store     handlers.PatientStore
	DB        handlers.Pinger
	Breaker   handlers.BreakerReporter // reported by /ready when set
	Optimizer *query.Optimizer
	Recorder  *perf.Recorder
	Hub       *handlers.Hub

	CORS        *middleware.CORSConfig
	RateLimiter *middleware.RateLimiter // nil disables rate limiting
}

// NewRouter wires the API routes and middleware chain.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover)
	r.Use(middleware.Instrument(d.Recorder))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(d.CORS))
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Limit)
	}
	r.Use(middleware.ValidateRequestBody)
	r.Use(middleware.Compress)

	// Health
	r.HandleFunc("/health", handlers.Health).Methods("GET")
	r.HandleFunc("/ready", handlers.Ready(d.DB, d.Breaker)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Patients
	api.Handle("/patients", middleware.ETag(handlers.GetPatients(d.Store, d.Optimizer))).Methods("GET")
	api.HandleFunc("/patients", handlers.CreatePatient(d.Store, d.Optimizer)).Methods("POST")

	// Analytics
	analytics := handlers.NewAnalyticsHandler(d.Store, d.Optimizer, d.Recorder)
	api.HandleFunc("/analytics", analytics.GetAnalytics).Methods("GET")

	// Instrumentation
	perfHandler := handlers.NewPerfHandler(d.Recorder, d.Optimizer, d.Hub)
	api.HandleFunc("/perf/metrics", perfHandler.GetMetrics).Methods("GET")
	api.HandleFunc("/perf/cache", perfHandler.GetCacheStats).Methods("GET")
	api.HandleFunc("/perf/cache/clear", perfHandler.ClearCache).Methods("POST")
	api.HandleFunc("/perf/reset", perfHandler.ResetMetrics).Methods("POST")
	if d.Hub != nil {
		api.HandleFunc("/perf/stream", d.Hub.HandleStream).Methods("GET")
	}

	// Preflight requests are answered by the CORS middleware, which only
	// runs once a route matches.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
