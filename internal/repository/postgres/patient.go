package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type patientRepository struct {
	db sqlx.ExtContext
}

const patientColumns = `id, name, nik, birth_date, address, phone, type, insurance_number, is_placeholder, created_at`

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	patient.ID = uuid.New()
	patient.CreatedAt = time.Now()

	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES (:id, :name, :nik, :birth_date, :address, :phone, :type, :insurance_number, :is_placeholder, :created_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, patient); err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var patient model.Patient
	err := sqlx.GetContext(ctx, r.db, &patient, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Patient, error) {
	out := make(map[uuid.UUID]*model.Patient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var patients []*model.Patient
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = ANY($1::uuid[])`
	if err := sqlx.SelectContext(ctx, r.db, &patients, query, pq.Array(uuidStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to get patients: %w", err)
	}
	for _, p := range patients {
		out[p.ID] = p
	}
	return out, nil
}

func (r *patientRepository) Search(ctx context.Context, q string, limit int) ([]*model.Patient, error) {
	query := `
		SELECT ` + patientColumns + ` FROM patients
		WHERE name ILIKE $1 OR nik ILIKE $1
		ORDER BY name ASC
		LIMIT $2
	`
	var patients []*model.Patient
	if err := sqlx.SelectContext(ctx, r.db, &patients, query, "%"+q+"%", limit); err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return patients, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
