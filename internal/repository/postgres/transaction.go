package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
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

type transactionRepository struct {
	db sqlx.ExtContext
}

type transactionRow struct {
	model.Transaction
	ItemsJSON []byte `db:"items"`
}

const transactionColumns = `id, visit_id, patient_name, description, items, amount, status,
	method, tendered, change_due, paid_at, tx_date, created_at`

func (r transactionRow) toModel() (*model.Transaction, error) {
	t := r.Transaction
	if len(r.ItemsJSON) > 0 {
		if err := json.Unmarshal(r.ItemsJSON, &t.Items); err != nil {
			return nil, fmt.Errorf("failed to decode transaction items: %w", err)
		}
	}
	return &t, nil
}

func (r *transactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	items, err := json.Marshal(tx.Items)
	if err != nil {
		return fmt.Errorf("failed to encode transaction items: %w", err)
	}

	tx.ID = uuid.New()
	tx.CreatedAt = time.Now()

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.db.ExecContext(ctx, query,
		tx.ID, tx.VisitID, tx.PatientName, tx.Description, items, tx.Amount, tx.Status,
		tx.Method, tx.Tendered, tx.Change, tx.PaidAt, tx.Date, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var row transactionRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return row.toModel()
}

func (r *transactionRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Transaction, error) {
	out := make(map[uuid.UUID]*model.Transaction, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []transactionRow
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ANY($1::uuid[])`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, pq.Array(uuidStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	for _, row := range rows {
		t, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out[t.ID] = t
	}
	return out, nil
}

func (r *transactionRepository) Update(ctx context.Context, tx *model.Transaction) error {
	items, err := json.Marshal(tx.Items)
	if err != nil {
		return fmt.Errorf("failed to encode transaction items: %w", err)
	}

	query := `
		UPDATE transactions
		SET description = $1, items = $2, amount = $3, status = $4, method = $5,
			tendered = $6, change_due = $7, paid_at = $8
		WHERE id = $9
	`
	res, err := r.db.ExecContext(ctx, query,
		tx.Description, items, tx.Amount, tx.Status, tx.Method, tx.Tendered, tx.Change, tx.PaidAt, tx.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return expectOne(res, "transaction", tx.ID)
}

func (r *transactionRepository) List(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}
	if filter.Status != "" {
		add("status = ?", filter.Status)
	}
	if filter.Date != "" {
		add("tx_date = ?", filter.Date)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		add("(patient_name ILIKE ? OR id::text ILIKE ?)", "%"+q+"%")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	var rows []transactionRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	out := make([]*model.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
