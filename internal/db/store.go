package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/circuitbreaker"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/metrics"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/perf"
)

// Querier is the generated query surface used by Store.
type Querier interface {
	ListPatients(ctx context.Context) ([]Patient, error)
	CreatePatient(ctx context.Context, arg CreatePatientParams) (Patient, error)
}

var _ Querier = (*Queries)(nil)

// Store runs queries through a circuit breaker and measures each one as
// OpQuery. While the breaker is open calls fail with
// circuitbreaker.ErrCircuitOpen without touching the database.
type Store struct {
	q       Querier
	rec     *perf.Recorder
	breaker *circuitbreaker.CircuitBreaker
}

// NewStore wraps q. A nil breaker gets the package defaults.
func NewStore(q Querier, rec *perf.Recorder, breaker *circuitbreaker.CircuitBreaker) *Store {
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.Config{Name: "database"})
	}
	return &Store{q: q, rec: rec, breaker: breaker}
}

func (s *Store) do(name string, fn func() error) error {
	stop := s.rec.Start(OpQuery)
	defer stop()

	err := s.breaker.Call(fn)
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		metrics.DBOperationErrors.WithLabelValues(name).Inc()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (s *Store) ListPatients(ctx context.Context) ([]Patient, error) {
	var out []Patient
	err := s.do("list_patients", func() error {
		var err error
		out, err = s.q.ListPatients(ctx)
		return err
	})
	return out, err
}

func (s *Store) CreatePatient(ctx context.Context, arg CreatePatientParams) (Patient, error) {
	var out Patient
	err := s.do("create_patient", func() error {
		var err error
		out, err = s.q.CreatePatient(ctx, arg)
		return err
	})
	return out, err
}

// BreakerState reports the breaker's current state.
func (s *Store) BreakerState() circuitbreaker.State {
	return s.breaker.GetState()
}
