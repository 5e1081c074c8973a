package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/analytics"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/apierr"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/circuitbreaker"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/db"
)

func postPatient(t *testing.T, env *testEnv, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	CreatePatient(env.store, env.opt)(rr, req)
	return rr
}

func TestGetPatients_NewestFirstAndMemoized(t *testing.T) {
	env := newTestEnv()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedPatient(env.store, "older", 40, nil, "120/80", 70, day)
	seedPatient(env.store, "newer", 50, []string{"smoking"}, "130/85", 75, day.AddDate(0, 0, 1))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		GetPatients(env.store, env.opt)(rr, httptest.NewRequest(http.MethodGet, "/api/patients", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}

		var out []PatientResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(out) != 2 || out[0].Name != "newer" || out[1].Name != "older" {
			t.Fatalf("unexpected order: %+v", out)
		}
		if string(out[1].RiskFactors) != "null" && string(out[1].RiskFactors) != "[]" {
			t.Errorf("riskFactors = %s", out[1].RiskFactors)
		}
	}

	if calls := env.store.calls(); calls != 1 {
		t.Errorf("store queried %d times, want 1", calls)
	}
	if _, ok := env.rec.Metrics("query_" + AllPatientsQuery); !ok {
		t.Error("expected query_all_patients measurement")
	}
}

func TestGetPatients_EmptyIsArray(t *testing.T) {
	env := newTestEnv()
	rr := httptest.NewRecorder()
	GetPatients(env.store, env.opt)(rr, httptest.NewRequest(http.MethodGet, "/api/patients", nil))

	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", rr.Body.String())
	}
}

func TestGetPatients_StoreError(t *testing.T) {
	env := newTestEnv()
	env.store.listErr = errStoreDown

	rr := httptest.NewRecorder()
	GetPatients(env.store, env.opt)(rr, httptest.NewRequest(http.MethodGet, "/api/patients", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var resp apierr.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Code != apierr.ErrPatientQuery {
		t.Errorf("code = %s", resp.Error.Code)
	}
	if stats := env.opt.CacheStats(); stats.Size != 0 {
		t.Errorf("failure must not be cached: %+v", stats)
	}
}

func TestCreatePatient(t *testing.T) {
	env := newTestEnv()

	// Prime the memoized list so we can check it is invalidated.
	GetPatients(env.store, env.opt)(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/patients", nil))

	rr := postPatient(t, env, `{
		"name": "  Ada Lovelace ",
		"age": 36,
		"gender": "female",
		"vitalSigns": {"bloodPressure": "120/80", "heartRate": 72, "temperature": 36.7},
		"riskFactors": ["smoking"],
		"medicalHistory": [{"condition": "asthma", "treatment": "inhaler"}]
	}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var out PatientResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.ID != 1 || out.Name != "Ada Lovelace" || out.Age != 36 {
		t.Errorf("unexpected patient %+v", out)
	}
	if !strings.Contains(string(out.VitalSigns), `"heartRate":72`) {
		t.Errorf("vitalSigns = %s", out.VitalSigns)
	}

	for _, k := range env.opt.CacheStats().Keys {
		if k == AllPatientsQuery || k == AnalyticsQuery {
			t.Errorf("%s should be invalidated after create", k)
		}
	}

	rr = httptest.NewRecorder()
	GetPatients(env.store, env.opt)(rr, httptest.NewRequest(http.MethodGet, "/api/patients", nil))
	var list []PatientResponse
	json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list) != 1 {
		t.Errorf("new patient should be visible, got %d", len(list))
	}
}

func TestCreatePatient_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode apierr.ErrorCode
	}{
		{"malformed", `{"name":`, apierr.ErrValidationInvalidJSON},
		{"missing name", `{"age":1,"gender":"male"}`, apierr.ErrValidationMissingField},
		{"long name", `{"name":"` + strings.Repeat("x", 61) + `","age":1,"gender":"male"}`, apierr.ErrValidationInvalidValue},
		{"missing age", `{"name":"A","gender":"male"}`, apierr.ErrValidationMissingField},
		{"negative age", `{"name":"A","age":-1,"gender":"male"}`, apierr.ErrValidationInvalidValue},
		{"age above limit", `{"name":"A","age":151,"gender":"male"}`, apierr.ErrValidationInvalidValue},
		{"age overflowing int32", `{"name":"Ann","age":4294967338,"gender":"female"}`, apierr.ErrValidationInvalidValue},
		{"missing gender", `{"name":"A","age":1}`, apierr.ErrValidationMissingField},
		{"bad gender", `{"name":"A","age":1,"gender":"robot"}`, apierr.ErrValidationInvalidValue},
		{"bad blood pressure", `{"name":"A","age":1,"gender":"male","vitalSigns":{"bloodPressure":"high"}}`, apierr.ErrValidationInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			rr := postPatient(t, env, tt.body)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp apierr.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.wantCode)
			}
			if len(env.store.created) != 0 {
				t.Error("invalid patient must not be stored")
			}
		})
	}
}

func TestCreatePatient_WrongContentType(t *testing.T) {
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	CreatePatient(env.store, env.opt)(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestCreatePatient_StoreError(t *testing.T) {
	env := newTestEnv()
	env.store.createErr = errStoreDown

	rr := postPatient(t, env, `{"name":"A","age":1,"gender":"male"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var resp apierr.ErrorResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Error.Code != apierr.ErrPatientCreate {
		t.Errorf("code = %s", resp.Error.Code)
	}
}

func TestGetPatients_StoreErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   apierr.ErrorCode
	}{
		{"breaker open", fmt.Errorf("list_patients: %w", circuitbreaker.ErrCircuitOpen), http.StatusServiceUnavailable, apierr.ErrSystemUnavailable},
		{"deadline", fmt.Errorf("list_patients: %w", context.DeadlineExceeded), http.StatusRequestTimeout, apierr.ErrSystemTimeout},
		{"other", errStoreDown, http.StatusInternalServerError, apierr.ErrPatientQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.store.listErr = tt.err

			rr := httptest.NewRecorder()
			GetPatients(env.store, env.opt)(rr, httptest.NewRequest(http.MethodGet, "/api/patients", nil))

			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			var resp apierr.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.code)
			}
		})
	}
}

func TestGetPatients_RiskScore(t *testing.T) {
	env := newTestEnv()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedPatient(env.store, "scored", 40, nil, "120/80", 70, day)
	env.store.patients = append(env.store.patients, db.Patient{ID: 2, Name: "no vitals", Age: 30, Gender: "male", CreatedAt: day})

	rr := httptest.NewRecorder()
	GetPatients(env.store, env.opt)(rr, httptest.NewRequest(http.MethodGet, "/api/patients", nil))
	var out []PatientResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d patients", len(out))
	}

	scored, unscored := out[1], out[0]
	want, err := analytics.RiskScore(analytics.Record{
		Age:        40,
		VitalSigns: analytics.VitalSigns{BloodPressure: "120/80", HeartRate: 70, Temperature: 36.6},
	})
	if err != nil {
		t.Fatal(err)
	}
	if scored.RiskScore == nil || *scored.RiskScore != want {
		t.Errorf("riskScore = %v, want %v", scored.RiskScore, want)
	}
	if scored.RiskLevel != analytics.MediumRisk {
		t.Errorf("riskLevel = %q, want %q", scored.RiskLevel, analytics.MediumRisk)
	}
	if unscored.RiskScore != nil || unscored.RiskLevel != "" {
		t.Errorf("patient without vitals should have no risk, got %v %q", unscored.RiskScore, unscored.RiskLevel)
	}
}
