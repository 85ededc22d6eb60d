package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type medicineRepository struct {
	db sqlx.ExtContext
}

func (r *medicineRepository) Create(ctx context.Context, m *model.Medicine) error {
	m.ID = uuid.New()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO medicines (id, name, price, stock) VALUES ($1, $2, $3, $4)`, m.ID, m.Name, m.Price, m.Stock)
	if err != nil {
		return fmt.Errorf("failed to create medicine: %w", err)
	}
	return nil
}

func (r *medicineRepository) Get(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	var m model.Medicine
	err := sqlx.GetContext(ctx, r.db, &m, `SELECT id, name, price, stock FROM medicines WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}
	return &m, nil
}

func (r *medicineRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Medicine, error) {
	out := make(map[uuid.UUID]*model.Medicine, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var medicines []*model.Medicine
	query := `SELECT id, name, price, stock FROM medicines WHERE id = ANY($1::uuid[])`
	if err := sqlx.SelectContext(ctx, r.db, &medicines, query, pq.Array(uuidStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to get medicines: %w", err)
	}
	for _, m := range medicines {
		out[m.ID] = m
	}
	return out, nil
}

func (r *medicineRepository) List(ctx context.Context) ([]*model.Medicine, error) {
	var medicines []*model.Medicine
	if err := sqlx.SelectContext(ctx, r.db, &medicines, `SELECT id, name, price, stock FROM medicines ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list medicines: %w", err)
	}
	return medicines, nil
}

// DecrementStock is a single conditional UPDATE; the row lock it takes
// makes concurrent dispenses of the same medicine queue behind each other.
func (r *medicineRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE medicines SET stock = stock - $1 WHERE id = $2 AND stock >= $1`, qty, id)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("medicine %s: %w", id, repository.ErrInsufficientStock)
}
