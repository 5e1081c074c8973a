package db

import (
	"time"

	"github.com/sqlc-dev/pqtype"
)

type Patient struct {
	ID             int32                 `json:"id"`
	Name           string                `json:"name"`
	Age            int32                 `json:"age"`
	Gender         string                `json:"gender"`
	VitalSigns     pqtype.NullRawMessage `json:"vital_signs"`
	RiskFactors    pqtype.NullRawMessage `json:"risk_factors"`
	MedicalHistory pqtype.NullRawMessage `json:"medical_history"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}
