package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type clinicRepository struct {
	db *sqlx.DB
}

func (r *clinicRepository) Get(ctx context.Context) (*model.ClinicInfo, error) {
	var info model.ClinicInfo
	err := r.db.GetContext(ctx, &info, `SELECT name, address, phone, email FROM clinic_info WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("clinic profile: %w", repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clinic profile: %w", err)
	}
	return &info, nil
}

func (r *clinicRepository) Save(ctx context.Context, info *model.ClinicInfo) error {
	query := `
		INSERT INTO clinic_info (id, name, address, phone, email)
		VALUES (1, :name, :address, :phone, :email)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, address = EXCLUDED.address,
			phone = EXCLUDED.phone, email = EXCLUDED.email
	`
	if _, err := r.db.NamedExecContext(ctx, query, info); err != nil {
		return fmt.Errorf("failed to save clinic profile: %w", err)
	}
	return nil
}
