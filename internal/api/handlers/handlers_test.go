package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/cache"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/db"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/perf"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/query"
)

var errStoreDown = errors.New("connection refused")

// fakeStore is an in-memory PatientStore.
type fakeStore struct {
	mu        sync.Mutex
	patients  []db.Patient
	listCalls int
	listErr   error
	createErr error
	created   []db.CreatePatientParams
}

func (f *fakeStore) ListPatients(ctx context.Context) ([]db.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]db.Patient, len(f.patients))
	// Newest first, as the SQL orders it.
	for i, p := range f.patients {
		out[len(f.patients)-1-i] = p
	}
	return out, nil
}

func (f *fakeStore) CreatePatient(ctx context.Context, arg db.CreatePatientParams) (db.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return db.Patient{}, f.createErr
	}
	f.created = append(f.created, arg)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(len(f.patients)) * 24 * time.Hour)
	p := db.Patient{
		ID:             int32(len(f.patients) + 1),
		Name:           arg.Name,
		Age:            arg.Age,
		Gender:         arg.Gender,
		VitalSigns:     arg.VitalSigns,
		RiskFactors:    arg.RiskFactors,
		MedicalHistory: arg.MedicalHistory,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.patients = append(f.patients, p)
	return p, nil
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func jsonb(v interface{}) pqtype.NullRawMessage {
	b, _ := json.Marshal(v)
	return pqtype.NullRawMessage{RawMessage: b, Valid: true}
}

func seedPatient(f *fakeStore, name string, age int32, risks []string, bp string, hr float64, created time.Time) {
	f.patients = append(f.patients, db.Patient{
		ID:          int32(len(f.patients) + 1),
		Name:        name,
		Age:         age,
		Gender:      "other",
		VitalSigns:  jsonb(map[string]interface{}{"bloodPressure": bp, "heartRate": hr, "temperature": 36.6}),
		RiskFactors: jsonb(risks),
		CreatedAt:   created,
		UpdatedAt:   created,
	})
}

type testEnv struct {
	store *fakeStore
	rec   *perf.Recorder
	opt   *query.Optimizer
	logs  *bytes.Buffer
}

func newTestEnv() *testEnv {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	rec := perf.NewRecorder(log, nil)
	return &testEnv{
		store: &fakeStore{},
		rec:   rec,
		opt:   query.New(cache.NewTTL(), rec, log, 0),
		logs:  &buf,
	}
}
