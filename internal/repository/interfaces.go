package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// All repository interfaces in one file
type (
	VisitRepository interface {
		// Create assigns ID, Seq and timestamps.
		Create(ctx context.Context, visit *model.Visit) error
		Get(ctx context.Context, id uuid.UUID) (*model.Visit, error)
		Update(ctx context.Context, visit *model.Visit) error
		Delete(ctx context.Context, id uuid.UUID) error
		// List returns matching visits in Seq order.
		List(ctx context.Context, filter model.VisitFilter) ([]*model.Visit, error)
		// NextQueueNumber reserves the next numeric queue suffix on date for
		// emergency or regular visits, starting at 1. A number stays taken
		// once its transaction commits, even if the visit is later deleted.
		NextQueueNumber(ctx context.Context, date string, emergency bool) (int, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Patient, error)
		// Search matches name or NIK case-insensitively.
		Search(ctx context.Context, query string, limit int) ([]*model.Patient, error)
	}

	MedicineRepository interface {
		Create(ctx context.Context, medicine *model.Medicine) error
		Get(ctx context.Context, id uuid.UUID) (*model.Medicine, error)
		GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Medicine, error)
		List(ctx context.Context) ([]*model.Medicine, error)
		// DecrementStock subtracts qty only if at least qty is on hand,
		// otherwise it returns ErrInsufficientStock and changes nothing.
		DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
	}

	TransactionRepository interface {
		Create(ctx context.Context, tx *model.Transaction) error
		Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
		GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Transaction, error)
		Update(ctx context.Context, tx *model.Transaction) error
		// List returns newest first.
		List(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		ListByRole(ctx context.Context, role model.Role) ([]*model.User, error)
	}

	ScheduleRepository interface {
		Create(ctx context.Context, schedule *model.DoctorSchedule) error
		ListByDay(ctx context.Context, day string) ([]*model.DoctorSchedule, error)
	}

	ClinicRepository interface {
		Get(ctx context.Context) (*model.ClinicInfo, error)
		Save(ctx context.Context, info *model.ClinicInfo) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPendingEvents returns the oldest pending events first.
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		// UpdateStatus persists Status, ErrorMessage, RetryCount and ProcessedAt.
		UpdateStatus(ctx context.Context, event *model.OutboxEvent) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// UnitOfWork groups the repositories a visit transition touches. Inside
// Store.WithinTx every call commits or rolls back together.
type UnitOfWork interface {
	Visits() VisitRepository
	Patients() PatientRepository
	Medicines() MedicineRepository
	Transactions() TransactionRepository
	Outbox() OutboxRepository
}

type Store interface {
	UnitOfWork
	Users() UserRepository
	Schedules() ScheduleRepository
	Clinic() ClinicRepository

	// WithinTx runs fn atomically. A returned error rolls back every write.
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
	Ping(ctx context.Context) error
	Close() error
}
