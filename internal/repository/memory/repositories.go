package memory

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type visitRepository struct{ u unitOfWork }

func (r *visitRepository) Create(ctx context.Context, visit *model.Visit) error {
	return r.u.run(ctx, func(d *dataset) error {
		d.seq++
		visit.ID = uuid.New()
		visit.Seq = d.seq
		visit.CreatedAt = time.Now()
		visit.UpdatedAt = visit.CreatedAt
		d.visits[visit.ID] = visit.Clone()
		return nil
	})
}

func (r *visitRepository) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	var out *model.Visit
	err := r.u.run(ctx, func(d *dataset) error {
		v, ok := d.visits[id]
		if !ok {
			return fmt.Errorf("visit %s: %w", id, repository.ErrNotFound)
		}
		out = v.Clone()
		return nil
	})
	return out, err
}

func (r *visitRepository) Update(ctx context.Context, visit *model.Visit) error {
	return r.u.run(ctx, func(d *dataset) error {
		if _, ok := d.visits[visit.ID]; !ok {
			return fmt.Errorf("visit %s: %w", visit.ID, repository.ErrNotFound)
		}
		visit.UpdatedAt = time.Now()
		d.visits[visit.ID] = visit.Clone()
		return nil
	})
}

func (r *visitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.u.run(ctx, func(d *dataset) error {
		if _, ok := d.visits[id]; !ok {
			return fmt.Errorf("visit %s: %w", id, repository.ErrNotFound)
		}
		delete(d.visits, id)
		return nil
	})
}

func (r *visitRepository) List(ctx context.Context, filter model.VisitFilter) ([]*model.Visit, error) {
	var out []*model.Visit
	err := r.u.run(ctx, func(d *dataset) error {
		for _, v := range d.visits {
			if filter.Matches(v) {
				out = append(out, v.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, err
}

var digits = regexp.MustCompile(`\d+`)

// NextQueueNumber also looks at stored visits so data loaded without a
// counter never reissues a number.
func (r *visitRepository) NextQueueNumber(ctx context.Context, date string, emergency bool) (int, error) {
	var next int
	err := r.u.run(ctx, func(d *dataset) error {
		key := queueSeries{date: date, emergency: emergency}
		last := d.counters[key]
		for _, v := range d.visits {
			if v.Date != date || v.IsEmergency != emergency {
				continue
			}
			if n, err := strconv.Atoi(digits.FindString(v.QueueNumber)); err == nil && n > last {
				last = n
			}
		}
		next = last + 1
		if d.counters == nil {
			d.counters = make(map[queueSeries]int)
		}
		d.counters[key] = next
		return nil
	})
	return next, err
}

type patientRepository struct{ u unitOfWork }

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	return r.u.run(ctx, func(d *dataset) error {
		patient.ID = uuid.New()
		patient.CreatedAt = time.Now()
		p := *patient
		d.patients[p.ID] = &p
		return nil
	})
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var out *model.Patient
	err := r.u.run(ctx, func(d *dataset) error {
		p, ok := d.patients[id]
		if !ok {
			return fmt.Errorf("patient %s: %w", id, repository.ErrNotFound)
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

func (r *patientRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Patient, error) {
	out := make(map[uuid.UUID]*model.Patient, len(ids))
	err := r.u.run(ctx, func(d *dataset) error {
		for _, id := range ids {
			if p, ok := d.patients[id]; ok {
				cp := *p
				out[id] = &cp
			}
		}
		return nil
	})
	return out, err
}

func (r *patientRepository) Search(ctx context.Context, q string, limit int) ([]*model.Patient, error) {
	q = strings.ToLower(q)
	var out []*model.Patient
	err := r.u.run(ctx, func(d *dataset) error {
		for _, p := range d.patients {
			if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.NIK), q) {
				cp := *p
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

type medicineRepository struct{ u unitOfWork }

func (r *medicineRepository) Create(ctx context.Context, m *model.Medicine) error {
	return r.u.run(ctx, func(d *dataset) error {
		m.ID = uuid.New()
		cm := *m
		d.medicines[cm.ID] = &cm
		return nil
	})
}

func (r *medicineRepository) Get(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	var out *model.Medicine
	err := r.u.run(ctx, func(d *dataset) error {
		m, ok := d.medicines[id]
		if !ok {
			return fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
		}
		cm := *m
		out = &cm
		return nil
	})
	return out, err
}

func (r *medicineRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Medicine, error) {
	out := make(map[uuid.UUID]*model.Medicine, len(ids))
	err := r.u.run(ctx, func(d *dataset) error {
		for _, id := range ids {
			if m, ok := d.medicines[id]; ok {
				cm := *m
				out[id] = &cm
			}
		}
		return nil
	})
	return out, err
}

func (r *medicineRepository) List(ctx context.Context) ([]*model.Medicine, error) {
	var out []*model.Medicine
	err := r.u.run(ctx, func(d *dataset) error {
		for _, m := range d.medicines {
			cm := *m
			out = append(out, &cm)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *medicineRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.u.run(ctx, func(d *dataset) error {
		m, ok := d.medicines[id]
		if !ok {
			return fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
		}
		if m.Stock < qty {
			return fmt.Errorf("medicine %s: %w", id, repository.ErrInsufficientStock)
		}
		m.Stock -= qty
		return nil
	})
}

type transactionRepository struct{ u unitOfWork }

func cloneTransaction(t *model.Transaction) *model.Transaction {
	c := *t
	c.Items = append([]model.TransactionItem(nil), t.Items...)
	if t.PaidAt != nil {
		at := *t.PaidAt
		c.PaidAt = &at
	}
	return &c
}

func (r *transactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	return r.u.run(ctx, func(d *dataset) error {
		tx.ID = uuid.New()
		tx.CreatedAt = time.Now()
		d.transactions[tx.ID] = cloneTransaction(tx)
		return nil
	})
}

func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var out *model.Transaction
	err := r.u.run(ctx, func(d *dataset) error {
		t, ok := d.transactions[id]
		if !ok {
			return fmt.Errorf("transaction %s: %w", id, repository.ErrNotFound)
		}
		out = cloneTransaction(t)
		return nil
	})
	return out, err
}

func (r *transactionRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Transaction, error) {
	out := make(map[uuid.UUID]*model.Transaction, len(ids))
	err := r.u.run(ctx, func(d *dataset) error {
		for _, id := range ids {
			if t, ok := d.transactions[id]; ok {
				out[id] = cloneTransaction(t)
			}
		}
		return nil
	})
	return out, err
}

func (r *transactionRepository) Update(ctx context.Context, tx *model.Transaction) error {
	return r.u.run(ctx, func(d *dataset) error {
		if _, ok := d.transactions[tx.ID]; !ok {
			return fmt.Errorf("transaction %s: %w", tx.ID, repository.ErrNotFound)
		}
		d.transactions[tx.ID] = cloneTransaction(tx)
		return nil
	})
}

func (r *transactionRepository) List(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error) {
	q := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []*model.Transaction
	err := r.u.run(ctx, func(d *dataset) error {
		for _, t := range d.transactions {
			if filter.Status != "" && t.Status != filter.Status {
				continue
			}
			if filter.Date != "" && t.Date != filter.Date {
				continue
			}
			if q != "" && !strings.Contains(strings.ToLower(t.PatientName), q) &&
				!strings.Contains(strings.ToLower(t.ID.String()), q) {
				continue
			}
			out = append(out, cloneTransaction(t))
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

type userRepository struct{ u unitOfWork }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.u.run(ctx, func(d *dataset) error {
		for _, existing := range d.users {
			if strings.EqualFold(existing.Username, user.Username) {
				return fmt.Errorf("username %q already taken", user.Username)
			}
		}
		user.ID = uuid.New()
		user.CreatedAt = time.Now()
		cu := *user
		d.users[cu.ID] = &cu
		return nil
	})
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var out *model.User
	err := r.u.run(ctx, func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
		}
		cu := *u
		out = &cu
		return nil
	})
	return out, err
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var out *model.User
	err := r.u.run(ctx, func(d *dataset) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Username, username) {
				cu := *u
				out = &cu
				return nil
			}
		}
		return fmt.Errorf("user %s: %w", username, repository.ErrNotFound)
	})
	return out, err
}

func (r *userRepository) ListByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	var out []*model.User
	err := r.u.run(ctx, func(d *dataset) error {
		for _, u := range d.users {
			if u.Role == role {
				cu := *u
				out = append(out, &cu)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

type scheduleRepository struct{ u unitOfWork }

func (r *scheduleRepository) Create(ctx context.Context, s *model.DoctorSchedule) error {
	return r.u.run(ctx, func(d *dataset) error {
		s.ID = uuid.New()
		cs := *s
		d.schedules = append(d.schedules, &cs)
		return nil
	})
}

func (r *scheduleRepository) ListByDay(ctx context.Context, day string) ([]*model.DoctorSchedule, error) {
	var out []*model.DoctorSchedule
	err := r.u.run(ctx, func(d *dataset) error {
		for _, s := range d.schedules {
			if strings.EqualFold(s.Day, day) {
				cs := *s
				out = append(out, &cs)
			}
		}
		return nil
	})
	return out, err
}

type clinicRepository struct{ u unitOfWork }

func (r *clinicRepository) Get(ctx context.Context) (*model.ClinicInfo, error) {
	var out *model.ClinicInfo
	err := r.u.run(ctx, func(d *dataset) error {
		if d.clinic == nil {
			return fmt.Errorf("clinic profile: %w", repository.ErrNotFound)
		}
		c := *d.clinic
		out = &c
		return nil
	})
	return out, err
}

func (r *clinicRepository) Save(ctx context.Context, info *model.ClinicInfo) error {
	return r.u.run(ctx, func(d *dataset) error {
		c := *info
		d.clinic = &c
		return nil
	})
}

type outboxRepository struct{ u unitOfWork }

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	return r.u.run(ctx, func(d *dataset) error {
		event.ID = uuid.New()
		event.CreatedAt = time.Now()
		event.Status = model.OutboxStatusPending
		ce := *event
		d.outbox = append(d.outbox, &ce)
		return nil
	})
}

func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	var out []*model.OutboxEvent
	err := r.u.run(ctx, func(d *dataset) error {
		for _, e := range d.outbox {
			if e.Status != model.OutboxStatusPending {
				continue
			}
			ce := *e
			out = append(out, &ce)
			if len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, event *model.OutboxEvent) error {
	return r.u.run(ctx, func(d *dataset) error {
		for _, e := range d.outbox {
			if e.ID == event.ID {
				e.Status = event.Status
				e.ErrorMessage = event.ErrorMessage
				e.RetryCount = event.RetryCount
				e.ProcessedAt = event.ProcessedAt
				return nil
			}
		}
		return fmt.Errorf("outbox event %s: %w", event.ID, repository.ErrNotFound)
	})
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.u.run(ctx, func(d *dataset) error {
		kept := d.outbox[:0]
		for _, e := range d.outbox {
			if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
				n++
				continue
			}
			kept = append(kept, e)
		}
		d.outbox = kept
		return nil
	})
	return n, err
}
