// Package server runs the HTTP API and the background loops that support it.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/api/handlers"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/cache"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/db"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/logger"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/middleware"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/perf"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 15 * time.Second

// Options configures a Server. Only Addr and Handler are required.
type Options struct {
	Addr            string
	Handler         http.Handler
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Cache       *cache.TTLCache
	Hub         *handlers.Hub
	RateLimiter *middleware.RateLimiter
	DB          *sql.DB
	Recorder    *perf.Recorder
}

// Server owns the HTTP listener and the cache janitor and stream hub loops.
type Server struct {
	opts       Options
	httpServer *http.Server
}

// New builds a server; nothing is started until Run or Serve.
func New(opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	hs := &http.Server{
		Addr:              opts.Addr,
		Handler:           opts.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	if opts.RequestTimeout > 0 {
		hs.ReadTimeout = opts.RequestTimeout
		hs.WriteTimeout = opts.RequestTimeout
	}
	return &Server{opts: opts, httpServer: hs}
}

// Run listens on Addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully and stops the background loops.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if s.opts.Cache != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.opts.Cache.Run(bgCtx)
		}()
	}
	if s.opts.Hub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.opts.Hub.Run(bgCtx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			serveErr = fmt.Errorf("shutdown: %w", err)
		}
		cancelShutdown()
	}

	cancel()
	if s.opts.Hub != nil {
		s.opts.Hub.Stop()
	}
	if s.opts.Cache != nil {
		s.opts.Cache.Stop()
	}
	wg.Wait()

	if s.opts.RateLimiter != nil {
		s.opts.RateLimiter.Stop()
	}
	if s.opts.DB != nil {
		if err := db.Close(s.opts.DB, s.opts.Recorder); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}
	return serveErr
}
