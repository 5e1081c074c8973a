package db

import (
	"context"

	"github.com/sqlc-dev/pqtype"
)

const listPatients = `-- name: ListPatients :many
SELECT id, name, age, gender, vital_signs, risk_factors, medical_history, created_at, updated_at
FROM patients
ORDER BY created_at DESC
`

func (q *Queries) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := q.db.QueryContext(ctx, listPatients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Patient
	for rows.Next() {
		var i Patient
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Age,
			&i.Gender,
			&i.VitalSigns,
			&i.RiskFactors,
			&i.MedicalHistory,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createPatient = `-- name: CreatePatient :one
INSERT INTO patients (name, age, gender, vital_signs, risk_factors, medical_history)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, name, age, gender, vital_signs, risk_factors, medical_history, created_at, updated_at
`

type CreatePatientParams struct {
	Name           string                `json:"name"`
	Age            int32                 `json:"age"`
	Gender         string                `json:"gender"`
	VitalSigns     pqtype.NullRawMessage `json:"vital_signs"`
	RiskFactors    pqtype.NullRawMessage `json:"risk_factors"`
	MedicalHistory pqtype.NullRawMessage `json:"medical_history"`
}

func (q *Queries) CreatePatient(ctx context.Context, arg CreatePatientParams) (Patient, error) {
	row := q.db.QueryRowContext(ctx, createPatient,
		arg.Name,
		arg.Age,
		arg.Gender,
		arg.VitalSigns,
		arg.RiskFactors,
		arg.MedicalHistory,
	)
	var i Patient
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Age,
		&i.Gender,
		&i.VitalSigns,
		&i.RiskFactors,
		&i.MedicalHistory,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
