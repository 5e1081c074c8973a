package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/metrics"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/perf"
)

// Operation names recorded for connection lifecycle events.
const (
	OpConnect    = "database_connection"
	OpDisconnect = "database_disconnection"
	OpQuery      = "database_operation"
)

// ErrNoDatabaseURL is returned by Open when no connection string is configured.
var ErrNoDatabaseURL = errors.New("DATABASE_URL not set")

// Open connects to Postgres and verifies the connection with a ping. The
// attempt is measured as OpConnect.
func Open(ctx context.Context, url string, rec *perf.Recorder) (*sql.DB, error) {
	if url == "" {
		return nil, ErrNoDatabaseURL
	}

	stop := rec.Start(OpConnect)
	defer stop()

	conn, err := sql.Open("postgres", url)
	if err != nil {
		metrics.DBOperationErrors.WithLabelValues("connect").Inc()
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		metrics.DBOperationErrors.WithLabelValues("connect").Inc()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

// Close closes conn, measured as OpDisconnect.
func Close(conn *sql.DB, rec *perf.Recorder) error {
	if conn == nil {
		return nil
	}
	stop := rec.Start(OpDisconnect)
	defer stop()

	if err := conn.Close(); err != nil {
		metrics.DBOperationErrors.WithLabelValues("disconnect").Inc()
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
