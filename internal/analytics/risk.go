package analytics

import (
	"fmt"
	"strconv"
	"strings"
)

// Risk labels returned by InterpretRisk.
const (
	LowRisk    = "Low Risk"
	MediumRisk = "Medium Risk"
	HighRisk   = "High Risk"
)

// InterpretRisk turns a score in [0,1] into a label.
func InterpretRisk(score float64) string {
	if score < 0.3 {
		return LowRisk
	}
	if score < 0.6 {
		return MediumRisk
	}
	return HighRisk
}

// ParseBloodPressure splits a "systolic/diastolic" reading.
func ParseBloodPressure(s string) (systolic, diastolic float64, err error) {
	sys, dia, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, 0, fmt.Errorf("blood pressure %q: expected systolic/diastolic", s)
	}
	if systolic, err = strconv.ParseFloat(strings.TrimSpace(sys), 64); err != nil {
		return 0, 0, fmt.Errorf("blood pressure %q: %w", s, err)
	}
	if diastolic, err = strconv.ParseFloat(strings.TrimSpace(dia), 64); err != nil {
		return 0, 0, fmt.Errorf("blood pressure %q: %w", s, err)
	}
	return systolic, diastolic, nil
}

// features normalises a record into the inputs RiskScore weighs.
func features(r Record) ([]float64, error) {
	sys, dia, err := ParseBloodPressure(r.VitalSigns.BloodPressure)
	if err != nil {
		return nil, err
	}
	return []float64{
		float64(r.Age) / 100,
		sys / 200,
		dia / 120,
		r.VitalSigns.HeartRate / 200,
		r.VitalSigns.Temperature / 42,
		float64(len(r.RiskFactors)) / 10,
	}, nil
}

// RiskScore is a heuristic score in [0,1]: the mean of the normalised age,
// blood pressure, heart rate, temperature and risk factor count.
func RiskScore(r Record) (float64, error) {
	f, err := features(r)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, v := range f {
		sum += clamp01(v)
	}
	return sum / float64(len(f)), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
