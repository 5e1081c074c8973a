package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/db"
)

func TestBucket(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, "low"},
		{2, "low"},
		{3, "medium"},
		{4, "medium"},
		{5, "high"},
		{9, "high"},
	}
	for _, tt := range tests {
		if got := Bucket(tt.count); got != tt.want {
			t.Errorf("Bucket(%d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []Record{
		{Age: 30, RiskFactors: nil, CreatedAt: day,
			VitalSigns: VitalSigns{BloodPressure: "120/80", HeartRate: 70, Temperature: 36.6}},
		{Age: 50, RiskFactors: []string{"a", "b", "c"}, CreatedAt: day.AddDate(0, 0, 1),
			VitalSigns: VitalSigns{BloodPressure: "140/90", HeartRate: 85, Temperature: 37.1}},
		{Age: 70, RiskFactors: []string{"a", "b", "c", "d", "e"}, CreatedAt: day.AddDate(0, 0, 2),
			VitalSigns: VitalSigns{BloodPressure: "160/100", HeartRate: 95, Temperature: 38}},
	}

	s := Summarize(records)

	if s.TotalPatients != 3 {
		t.Errorf("TotalPatients = %d, want 3", s.TotalPatients)
	}
	if s.AverageAge != 50 {
		t.Errorf("AverageAge = %v, want 50", s.AverageAge)
	}
	want := RiskDistribution{Low: 1, Medium: 1, High: 1}
	if s.RiskDistribution != want {
		t.Errorf("RiskDistribution = %+v, want %+v", s.RiskDistribution, want)
	}
	tr := s.VitalSignsTrends
	if len(tr.Labels) != 3 || tr.Labels[0] != "2024-03-01" || tr.Labels[2] != "2024-03-03" {
		t.Errorf("Labels = %v", tr.Labels)
	}
	if tr.BloodPressure[1] != "140/90" || tr.HeartRate[2] != 95 || tr.Temperature[0] != 36.6 {
		t.Errorf("unexpected trends %+v", tr)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalPatients != 0 || s.AverageAge != 0 {
		t.Errorf("unexpected summary %+v", s)
	}

	// Empty trend columns encode as [] rather than null.
	b, err := json.Marshal(s.VitalSignsTrends)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"labels":[],"bloodPressure":[],"heartRate":[],"temperature":[]}` {
		t.Errorf("unexpected encoding %s", b)
	}
}

func TestFromPatient(t *testing.T) {
	p := db.Patient{
		ID:  1,
		Age: 42,
		VitalSigns: pqtype.NullRawMessage{
			RawMessage: json.RawMessage(`{"bloodPressure":"118/76","heartRate":64,"temperature":36.8}`),
			Valid:      true,
		},
		RiskFactors: pqtype.NullRawMessage{
			RawMessage: json.RawMessage(`["smoking","diabetes"]`),
			Valid:      true,
		},
	}

	r, err := FromPatient(p)
	if err != nil {
		t.Fatalf("FromPatient: %v", err)
	}
	if r.Age != 42 || r.VitalSigns.HeartRate != 64 || len(r.RiskFactors) != 2 {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestFromPatient_NullColumns(t *testing.T) {
	r, err := FromPatient(db.Patient{ID: 2, Age: 10})
	if err != nil {
		t.Fatalf("FromPatient: %v", err)
	}
	if r.RiskFactors != nil || r.VitalSigns != (VitalSigns{}) {
		t.Errorf("expected zero values, got %+v", r)
	}
}

func TestFromPatients_BadJSON(t *testing.T) {
	_, err := FromPatients([]db.Patient{{
		ID:          3,
		RiskFactors: pqtype.NullRawMessage{RawMessage: json.RawMessage(`{`), Valid: true},
	}})
	if err == nil {
		t.Fatal("expected decode error")
	}
}
