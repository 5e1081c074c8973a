// Package analytics derives the dashboard summary from patient records.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Bharani-tharan-2003/Healthcare-Project/internal/db"
)

// VitalSigns is the JSONB document stored in patients.vital_signs.
type VitalSigns struct {
	BloodPressure string  `json:"bloodPressure"`
	HeartRate     float64 `json:"heartRate"`
	Temperature   float64 `json:"temperature"`
}

// Record is the subset of a patient the analytics work on.
type Record struct {
	Age         int
	VitalSigns  VitalSigns
	RiskFactors []string
	CreatedAt   time.Time
}

// RiskDistribution counts patients per risk bucket.
type RiskDistribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// VitalSignsTrends holds one column per vital sign, aligned with Labels.
type VitalSignsTrends struct {
	Labels        []string  `json:"labels"`
	BloodPressure []string  `json:"bloodPressure"`
	HeartRate     []float64 `json:"heartRate"`
	Temperature   []float64 `json:"temperature"`
}

// Summary is the analytics payload served by the dashboard.
type Summary struct {
	TotalPatients    int              `json:"totalPatients"`
	AverageAge       float64          `json:"averageAge"`
	RiskDistribution RiskDistribution `json:"riskDistribution"`
	VitalSignsTrends VitalSignsTrends `json:"vitalSignsTrends"`
}

// LabelLayout formats the trend labels.
const LabelLayout = "2006-01-02"

// FromPatient decodes the JSONB columns of p. Missing columns decode to zero values.
func FromPatient(p db.Patient) (Record, error) {
	r := Record{Age: int(p.Age), CreatedAt: p.CreatedAt}
	if p.VitalSigns.Valid && len(p.VitalSigns.RawMessage) > 0 {
		if err := json.Unmarshal(p.VitalSigns.RawMessage, &r.VitalSigns); err != nil {
			return Record{}, fmt.Errorf("decode vital signs for patient %d: %w", p.ID, err)
		}
	}
	if p.RiskFactors.Valid && len(p.RiskFactors.RawMessage) > 0 {
		if err := json.Unmarshal(p.RiskFactors.RawMessage, &r.RiskFactors); err != nil {
			return Record{}, fmt.Errorf("decode risk factors for patient %d: %w", p.ID, err)
		}
	}
	return r, nil
}

// FromPatients converts a whole result set, stopping at the first bad row.
func FromPatients(patients []db.Patient) ([]Record, error) {
	out := make([]Record, 0, len(patients))
	for _, p := range patients {
		r, err := FromPatient(p)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Bucket maps a risk factor count to low (<=2), medium (<=4) or high.
func Bucket(riskFactors int) string {
	switch {
	case riskFactors <= 2:
		return "low"
	case riskFactors <= 4:
		return "medium"
	default:
		return "high"
	}
}

// Summarize computes totals, risk buckets and vital-sign trends. The trend
// columns keep the order of records. An empty input yields an average age of 0.
func Summarize(records []Record) Summary {
	s := Summary{
		TotalPatients: len(records),
		VitalSignsTrends: VitalSignsTrends{
			Labels:        make([]string, 0, len(records)),
			BloodPressure: make([]string, 0, len(records)),
			HeartRate:     make([]float64, 0, len(records)),
			Temperature:   make([]float64, 0, len(records)),
		},
	}

	var ageSum int
	for _, r := range records {
		ageSum += r.Age

		switch Bucket(len(r.RiskFactors)) {
		case "low":
			s.RiskDistribution.Low++
		case "medium":
			s.RiskDistribution.Medium++
		default:
			s.RiskDistribution.High++
		}

		t := &s.VitalSignsTrends
		t.Labels = append(t.Labels, r.CreatedAt.Format(LabelLayout))
		t.BloodPressure = append(t.BloodPressure, r.VitalSigns.BloodPressure)
		t.HeartRate = append(t.HeartRate, r.VitalSigns.HeartRate)
		t.Temperature = append(t.Temperature, r.VitalSigns.Temperature)
	}
	if len(records) > 0 {
		s.AverageAge = float64(ageSum) / float64(len(records))
	}
	return s
}
