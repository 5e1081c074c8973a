package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/analytics"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/apierr"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/circuitbreaker"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/db"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/errorreporting"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/logger"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/middleware"
	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/query"
)

// Memoized query names. They double as cache keys.
const (
	AllPatientsQuery = "all_patients"
	AnalyticsQuery   = "analytics_calculation"
)

// PatientLister reads the patient table.
type PatientLister interface {
	ListPatients(ctx context.Context) ([]db.Patient, error)
}

// PatientStore reads and writes the patient table.
type PatientStore interface {
	PatientLister
	CreatePatient(ctx context.Context, arg db.CreatePatientParams) (db.Patient, error)
}

// MedicalEvent is one entry of a patient's medical history.
type MedicalEvent struct {
	Condition     string     `json:"condition"`
	DiagnosisDate *time.Time `json:"diagnosisDate,omitempty"`
	Treatment     string     `json:"treatment,omitempty"`
}

// PatientRequest is the body accepted by POST /api/patients.
type PatientRequest struct {
	Name           string               `json:"name"`
	Age            *int                 `json:"age"`
	Gender         string               `json:"gender"`
	VitalSigns     analytics.VitalSigns `json:"vitalSigns"`
	RiskFactors    []string             `json:"riskFactors"`
	MedicalHistory []MedicalEvent       `json:"medicalHistory"`
}

// PatientResponse is the JSON form of a stored patient.
type PatientResponse struct {
	ID             int32           `json:"id"`
	Name           string          `json:"name"`
	Age            int32           `json:"age"`
	Gender         string          `json:"gender"`
	VitalSigns     json.RawMessage `json:"vitalSigns"`
	RiskFactors    json.RawMessage `json:"riskFactors"`
	MedicalHistory json.RawMessage `json:"medicalHistory"`
	RiskScore      *float64        `json:"riskScore,omitempty"`
	RiskLevel      string          `json:"riskLevel,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func rawOr(m pqtype.NullRawMessage, fallback string) json.RawMessage {
	if !m.Valid || len(m.RawMessage) == 0 {
		return json.RawMessage(fallback)
	}
	return m.RawMessage
}

// toPatientResponse adds a risk score and level when the stored vital signs
// carry a readable blood pressure.
func toPatientResponse(p db.Patient) PatientResponse {
	out := PatientResponse{
		ID:             p.ID,
		Name:           p.Name,
		Age:            p.Age,
		Gender:         p.Gender,
		VitalSigns:     rawOr(p.VitalSigns, "null"),
		RiskFactors:    rawOr(p.RiskFactors, "[]"),
		MedicalHistory: rawOr(p.MedicalHistory, "[]"),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if rec, err := analytics.FromPatient(p); err == nil {
		if score, err := analytics.RiskScore(rec); err == nil {
			out.RiskScore = &score
			out.RiskLevel = analytics.InterpretRisk(score)
		}
	}
	return out
}

// GetPatients lists patients newest first.
// GET /api/patients
func GetPatients(store PatientLister, opt *query.Optimizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients, err := query.Do(r.Context(), opt, AllPatientsQuery, store.ListPatients)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, storeError(err, apierr.PatientQueryFailed("Error fetching patients")))
			return
		}

		out := make([]PatientResponse, 0, len(patients))
		for _, p := range patients {
			out = append(out, toPatientResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// storeError maps a store failure to the API error sent to the client.
// Unexpected failures are reported to Sentry and answered with fallback.
func storeError(err error, fallback *apierr.Error) *apierr.Error {
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return apierr.SystemUnavailable("Database temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.SystemTimeout("Database query timed out")
	}
	errorreporting.CaptureErrorWithContext(err, map[string]string{"endpoint": "patients"}, nil)
	return fallback
}

func marshalNullable(v interface{}, present bool) (pqtype.NullRawMessage, error) {
	if !present {
		return pqtype.NullRawMessage{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: b, Valid: true}, nil
}

// validate returns the first field error as an API error.
func (p *PatientRequest) validate() *apierr.Error {
	s := &middleware.SanitizeInput{}
	p.Name = s.SanitizeString(p.Name, middleware.MaxPatientNameLength+1)

	if p.Name == "" {
		return apierr.ValidationMissingField("name")
	}
	if err := s.ValidatePatientName(p.Name); err != nil {
		return apierr.ValidationInvalidValue("name", err.Error())
	}
	if p.Age == nil {
		return apierr.ValidationMissingField("age")
	}
	if err := s.ValidateAge(*p.Age); err != nil {
		return apierr.ValidationInvalidValue("age", err.Error())
	}
	if p.Gender == "" {
		return apierr.ValidationMissingField("gender")
	}
	if err := s.ValidateGender(p.Gender); err != nil {
		return apierr.ValidationInvalidValue("gender", err.Error())
	}
	if err := s.ValidateRiskFactors(p.RiskFactors); err != nil {
		return apierr.ValidationInvalidValue("riskFactors", err.Error())
	}
	if p.VitalSigns.BloodPressure != "" {
		if _, _, err := analytics.ParseBloodPressure(p.VitalSigns.BloodPressure); err != nil {
			return apierr.ValidationInvalidValue("vitalSigns.bloodPressure", err.Error())
		}
	}
	return nil
}

// CreatePatient stores a patient and drops the memoized patient list and
// analytics so the next read sees it.
// POST /api/patients
func CreatePatient(store PatientStore, opt *query.Optimizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := middleware.ValidateJSON(r); err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
			return
		}

		var req PatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
			return
		}
		if apiErr := req.validate(); apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}

		params := db.CreatePatientParams{
			Name:   req.Name,
			Age:    int32(*req.Age),
			Gender: req.Gender,
		}
		var err error
		if params.VitalSigns, err = marshalNullable(req.VitalSigns, req.VitalSigns != (analytics.VitalSigns{})); err == nil {
			if params.RiskFactors, err = marshalNullable(nonNil(req.RiskFactors), true); err == nil {
				params.MedicalHistory, err = marshalNullable(req.MedicalHistory, req.MedicalHistory != nil)
			}
		}
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
			return
		}

		patient, err := store.CreatePatient(r.Context(), params)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to create patient", "error", err)
			apierr.WriteErrorWithContext(w, r, storeError(err, apierr.PatientCreateFailed("Error creating patient")))
			return
		}

		opt.Invalidate(AllPatientsQuery)
		opt.Invalidate(AnalyticsQuery)

		writeJSON(w, http.StatusCreated, toPatientResponse(patient))
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
