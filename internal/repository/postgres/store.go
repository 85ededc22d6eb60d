package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/repository"
)

//go:embed migrations/001_init.sql
var schema string

// Store implements repository.Store on PostgreSQL. Repositories are built
// over sqlx.ExtContext so the same code runs against the pool or a tx.
type Store struct {
	db *sqlx.DB
	unitOfWork
}

type unitOfWork struct {
	ext  sqlx.ExtContext
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, unitOfWork: unitOfWork{ext: db}}
}

// Migrate applies the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (u unitOfWork) Visits() repository.VisitRepository {
	return &visitRepository{db: u.ext, inTx: u.inTx}
}

func (u unitOfWork) Patients() repository.PatientRepository {
	return &patientRepository{db: u.ext}
}

func (u unitOfWork) Medicines() repository.MedicineRepository {
	return &medicineRepository{db: u.ext}
}

func (u unitOfWork) Transactions() repository.TransactionRepository {
	return &transactionRepository{db: u.ext}
}

func (u unitOfWork) Outbox() repository.OutboxRepository {
	return &outboxRepository{db: u.ext}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepository{db: s.db}
}

func (s *Store) Schedules() repository.ScheduleRepository {
	return &scheduleRepository{db: s.db}
}

func (s *Store) Clinic() repository.ClinicRepository {
	return &clinicRepository{db: s.db}
}

// WithinTx executes fn within a transaction
func (s *Store) WithinTx(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(unitOfWork{ext: tx, inTx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// nullableJSON marshals v for a JSONB column, sending NULL for nil pointers.
func nullableJSON[T any](v *T) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func scanJSON[T any](raw []byte) (*T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
