// Package memory is a process-local repository.Store. Every call is
// serialized by one mutex and WithinTx restores a snapshot on error, so
// it honours the same atomicity contract as the postgres store.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type dataset struct {
	seq          int64
	visits       map[uuid.UUID]*model.Visit
	patients     map[uuid.UUID]*model.Patient
	medicines    map[uuid.UUID]*model.Medicine
	transactions map[uuid.UUID]*model.Transaction
	users        map[uuid.UUID]*model.User
	schedules    []*model.DoctorSchedule
	clinic       *model.ClinicInfo
	outbox       []*model.OutboxEvent
	// counters holds the last queue number issued per day and series.
	counters map[queueSeries]int
}

type queueSeries struct {
	date      string
	emergency bool
}

func newDataset() *dataset {
	return &dataset{
		counters:     make(map[queueSeries]int),
		visits:       make(map[uuid.UUID]*model.Visit),
		patients:     make(map[uuid.UUID]*model.Patient),
		medicines:    make(map[uuid.UUID]*model.Medicine),
		transactions: make(map[uuid.UUID]*model.Transaction),
		users:        make(map[uuid.UUID]*model.User),
	}
}

// snapshot copies everything a unit of work can write.
func (d *dataset) snapshot() *dataset {
	c := *d
	c.visits = make(map[uuid.UUID]*model.Visit, len(d.visits))
	for id, v := range d.visits {
		c.visits[id] = v.Clone()
	}
	c.patients = make(map[uuid.UUID]*model.Patient, len(d.patients))
	for id, p := range d.patients {
		cp := *p
		c.patients[id] = &cp
	}
	c.medicines = make(map[uuid.UUID]*model.Medicine, len(d.medicines))
	for id, m := range d.medicines {
		cm := *m
		c.medicines[id] = &cm
	}
	c.transactions = make(map[uuid.UUID]*model.Transaction, len(d.transactions))
	for id, t := range d.transactions {
		c.transactions[id] = cloneTransaction(t)
	}
	c.counters = make(map[queueSeries]int, len(d.counters))
	for k, n := range d.counters {
		c.counters[k] = n
	}
	c.outbox = make([]*model.OutboxEvent, len(d.outbox))
	for i, e := range d.outbox {
		ce := *e
		c.outbox[i] = &ce
	}
	return &c
}

type Store struct {
	mu   sync.Mutex
	data *dataset
	unitOfWork
}

// unitOfWork hands out repositories bound to the store. Inside WithinTx
// locked is true and the caller already holds mu.
type unitOfWork struct {
	s      *Store
	locked bool
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	s := &Store{data: newDataset()}
	s.unitOfWork = unitOfWork{s: s}
	return s
}

// run executes fn against the dataset, taking the lock unless the unit of
// work already holds it.
func (u unitOfWork) run(ctx context.Context, fn func(d *dataset) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !u.locked {
		u.s.mu.Lock()
		defer u.s.mu.Unlock()
	}
	return fn(u.s.data)
}

func (u unitOfWork) Visits() repository.VisitRepository             { return &visitRepository{u} }
func (u unitOfWork) Patients() repository.PatientRepository         { return &patientRepository{u} }
func (u unitOfWork) Medicines() repository.MedicineRepository       { return &medicineRepository{u} }
func (u unitOfWork) Transactions() repository.TransactionRepository { return &transactionRepository{u} }
func (u unitOfWork) Outbox() repository.OutboxRepository            { return &outboxRepository{u} }

func (s *Store) Users() repository.UserRepository         { return &userRepository{s.unitOfWork} }
func (s *Store) Schedules() repository.ScheduleRepository { return &scheduleRepository{s.unitOfWork} }
func (s *Store) Clinic() repository.ClinicRepository      { return &clinicRepository{s.unitOfWork} }

func (s *Store) WithinTx(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.data.snapshot()
	committed := false
	defer func() {
		if !committed {
			s.data = saved
		}
	}()

	if err := fn(unitOfWork{s: s, locked: true}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }
