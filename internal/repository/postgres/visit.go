package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type visitRepository struct {
	db   sqlx.ExtContext
	inTx bool
}

type visitRow struct {
	model.Visit
	MedicalRecordJSON []byte `db:"medical_record"`
	PrescriptionJSON  []byte `db:"prescription"`
}

const visitColumns = `id, seq, patient_id, doctor_id, visit_date, queue_number, is_emergency,
	status, medical_record, prescription, transaction_id, created_at, updated_at`

func (r visitRow) toModel() (*model.Visit, error) {
	v := r.Visit
	var err error
	if v.MedicalRecord, err = scanJSON[model.MedicalRecord](r.MedicalRecordJSON); err != nil {
		return nil, fmt.Errorf("failed to decode medical record: %w", err)
	}
	if v.Prescription, err = scanJSON[model.Prescription](r.PrescriptionJSON); err != nil {
		return nil, fmt.Errorf("failed to decode prescription: %w", err)
	}
	return &v, nil
}

func (r *visitRepository) Create(ctx context.Context, visit *model.Visit) error {
	record, err := nullableJSON(visit.MedicalRecord)
	if err != nil {
		return fmt.Errorf("failed to encode medical record: %w", err)
	}
	prescription, err := nullableJSON(visit.Prescription)
	if err != nil {
		return fmt.Errorf("failed to encode prescription: %w", err)
	}

	visit.ID = uuid.New()
	visit.CreatedAt = time.Now()
	visit.UpdatedAt = visit.CreatedAt

	query := `
		INSERT INTO visits (
			id, patient_id, doctor_id, visit_date, queue_number, is_emergency,
			status, medical_record, prescription, transaction_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING seq
	`
	err = r.db.QueryRowxContext(ctx, query,
		visit.ID,
		visit.PatientID,
		visit.DoctorID,
		visit.Date,
		visit.QueueNumber,
		visit.IsEmergency,
		visit.Status,
		record,
		prescription,
		visit.TransactionID,
		visit.CreatedAt,
		visit.UpdatedAt,
	).Scan(&visit.Seq)
	if err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

func (r *visitRepository) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	var row visitRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+visitColumns+` FROM visits WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("visit %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return row.toModel()
}

func (r *visitRepository) Update(ctx context.Context, visit *model.Visit) error {
	record, err := nullableJSON(visit.MedicalRecord)
	if err != nil {
		return fmt.Errorf("failed to encode medical record: %w", err)
	}
	prescription, err := nullableJSON(visit.Prescription)
	if err != nil {
		return fmt.Errorf("failed to encode prescription: %w", err)
	}

	visit.UpdatedAt = time.Now()
	query := `
		UPDATE visits
		SET doctor_id = $1, status = $2, medical_record = $3, prescription = $4,
			transaction_id = $5, updated_at = $6
		WHERE id = $7
	`
	res, err := r.db.ExecContext(ctx, query,
		visit.DoctorID,
		visit.Status,
		record,
		prescription,
		visit.TransactionID,
		visit.UpdatedAt,
		visit.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update visit: %w", err)
	}
	return expectOne(res, "visit", visit.ID)
}

func (r *visitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM visits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete visit: %w", err)
	}
	return expectOne(res, "visit", id)
}

func (r *visitRepository) List(ctx context.Context, filter model.VisitFilter) ([]*model.Visit, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Date != "" {
		add("visit_date = $%d", filter.Date)
	}
	if filter.DoctorID != nil {
		add("doctor_id = $%d", *filter.DoctorID)
	}
	if filter.PatientID != nil {
		add("patient_id = $%d", *filter.PatientID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}

	query := `SELECT ` + visitColumns + ` FROM visits`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq ASC`

	var rows []visitRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}

	visits := make([]*model.Visit, 0, len(rows))
	for _, row := range rows {
		v, err := row.toModel()
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, nil
}

// NextQueueNumber bumps the per-day counter in queue_counters. The
// advisory lock serializes the first registration of a day, where the
// counter row does not exist yet and is seeded from the visits table.
func (r *visitRepository) NextQueueNumber(ctx context.Context, date string, emergency bool) (int, error) {
	if r.inTx {
		if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "queue:"+date); err != nil {
			return 0, fmt.Errorf("failed to lock queue numbering: %w", err)
		}
	}

	series := "regular"
	if emergency {
		series = "emergency"
	}
	query := `
		INSERT INTO queue_counters (visit_date, series, last_number)
		VALUES ($1, $2, 1 + (
			SELECT COALESCE(MAX(NULLIF(regexp_replace(queue_number, '\D', '', 'g'), '')::INT), 0)
			FROM visits
			WHERE visit_date = $1 AND is_emergency = $3
		))
		ON CONFLICT (visit_date, series)
		DO UPDATE SET last_number = queue_counters.last_number + 1
		RETURNING last_number
	`
	var next int
	if err := sqlx.GetContext(ctx, r.db, &next, query, date, series, emergency); err != nil {
		return 0, fmt.Errorf("failed to reserve queue number: %w", err)
	}
	return next, nil
}

func expectOne(res sql.Result, entity string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, repository.ErrNotFound)
	}
	return nil
}
