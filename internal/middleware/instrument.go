package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/metrics"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/perf"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/tracing"
)

// OperationName is the recorder key for a request: "<METHOD> <PATH>".
func OperationName(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.status = http.StatusOK
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets websocket upgrades pass through the wrapper.
func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	w.wroteHeader = true
	return h.Hijack()
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// endpointLabel prefers the mux route template so path variables do not
// blow up metric cardinality.
func endpointLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// Instrument times every request through rec under OperationName. The
// measurement is stopped when the handler returns or panics; a panic is
// re-raised unchanged and the response is never modified.
//
// OPTIONS requests are passed through unmeasured: the preflight route
// matches any path, so timing it would add a recorder key and metric
// series per requested path.
func Instrument(rec *perf.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			op := OperationName(r)
			stop := rec.Start(op)

			ctx, span := tracing.StartSpan(r.Context(), op)
			sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				elapsed := stop()
				status := sw.status
				if p := recover(); p != nil {
					status = http.StatusInternalServerError
					observeRequest(r, status, elapsed)
					span.SetStatus(codes.Error, "panic")
					span.End()
					panic(p)
				}
				observeRequest(r, status, elapsed)
				span.SetAttributes(attribute.Int("http.status_code", status))
				if status >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, http.StatusText(status))
				}
				span.End()
			}()

			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			)
			next.ServeHTTP(sw, r.WithContext(ctx))
		})
	}
}

func observeRequest(r *http.Request, status int, elapsed time.Duration) {
	endpoint := endpointLabel(r)
	code := strconv.Itoa(status)
	metrics.APIRequestDuration.WithLabelValues(endpoint, r.Method, code).Observe(elapsed.Seconds())
	metrics.APIRequestsTotal.WithLabelValues(endpoint, r.Method, code).Inc()
}

// InstrumentFunc wraps a handler that returns its result instead of writing
// it. The result and error of fn are returned unchanged.
func InstrumentFunc[T any](rec *perf.Recorder, fn func(*http.Request) (T, error)) func(*http.Request) (T, error) {
	return func(r *http.Request) (T, error) {
		stop := rec.Start(OperationName(r))
		defer stop()
		return fn(r)
	}
}
