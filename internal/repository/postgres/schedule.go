package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
)

type scheduleRepository struct {
	db *sqlx.DB
}

func (r *scheduleRepository) Create(ctx context.Context, s *model.DoctorSchedule) error {
	s.ID = uuid.New()
	query := `
		INSERT INTO doctor_schedules (id, doctor_id, name, specialty, day, time_range, status, quota, filled)
		VALUES (:id, :doctor_id, :name, :specialty, :day, :time_range, :status, :quota, :filled)
	`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

func (r *scheduleRepository) ListByDay(ctx context.Context, day string) ([]*model.DoctorSchedule, error) {
	query := `
		SELECT id, doctor_id, name, specialty, day, time_range, status, quota, filled
		FROM doctor_schedules
		WHERE day = $1
		ORDER BY name
	`
	var schedules []*model.DoctorSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, day); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}
