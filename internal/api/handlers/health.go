package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/circuitbreaker"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// BreakerReporter exposes the state of the database circuit breaker.
type BreakerReporter interface {
	BreakerState() circuitbreaker.State
}

// Health returns a simple JSON payload to indicate the API is alive.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Ready reports 503 until the database answers a ping and while the
// database circuit breaker is open. breaker may be nil.
func Ready(db Pinger, breaker BreakerReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, body := http.StatusOK, map[string]string{"status": "ready"}
		if db == nil {
			status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "not configured"}
		} else if err := db.PingContext(ctx); err != nil {
			status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "unreachable"}
		}
		if breaker != nil {
			state := breaker.BreakerState()
			body["circuit_breaker"] = state.String()
			if state == circuitbreaker.StateOpen {
				status = http.StatusServiceUnavailable
				body["status"] = "unavailable"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
