package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/billing"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const (
	UnknownPatient   = "Unknown patient"
	UnassignedDoctor = "Unassigned"

	doctorsCacheKey = "doctors"
)

// Filters narrow a station queue. An empty Date means today; AllDates
// lifts the day restriction entirely.
type Filters struct {
	Date     string
	AllDates bool
	// DoctorID is the requesting doctor; required for the doctor station.
	DoctorID uuid.UUID
}

// Entry is one row of a station board with display labels already joined.
type Entry struct {
	VisitID       uuid.UUID           `json:"visit_id"`
	QueueNumber   string              `json:"queue_number"`
	Status        model.VisitStatus   `json:"status"`
	IsEmergency   bool                `json:"is_emergency"`
	Date          string              `json:"date"`
	PatientID     uuid.UUID           `json:"patient_id"`
	PatientName   string              `json:"patient_name"`
	DoctorID      *uuid.UUID          `json:"doctor_id,omitempty"`
	DoctorName    string              `json:"doctor_name"`
	Prescription  *model.Prescription `json:"prescription,omitempty"`
	TransactionID *uuid.UUID          `json:"transaction_id,omitempty"`
	AmountDue     int64               `json:"amount_due,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

type Summary struct {
	Date      string                    `json:"date"`
	Total     int                       `json:"total"`
	Emergency int                       `json:"emergency"`
	ByStatus  map[model.VisitStatus]int `json:"by_status"`
}

type Service struct {
	store   repository.Store
	calc    billing.Calculator
	labels  *cache.Cache
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(store repository.Store, calc billing.Calculator, labelTTL time.Duration, m *metrics.Metrics, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	if labelTTL <= 0 {
		labelTTL = 30 * time.Second
	}
	return &Service{
		store:   store,
		calc:    calc,
		labels:  cache.New(labelTTL, 2*labelTTL),
		metrics: m,
		now:     clock,
	}
}

// ListQueue builds the board for station. An empty queue is a valid result.
func (s *Service) ListQueue(ctx context.Context, station Station, f Filters) ([]Entry, error) {
	timer := prometheus.NewTimer(s.metrics.QueueListDurations.WithLabelValues(string(station)))
	defer timer.ObserveDuration()

	if _, ok := ParseStation(string(station)); !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown station %q", station), []string{"station"})
	}
	if station == StationDoctor && f.DoctorID == uuid.Nil {
		return nil, apperrors.Validation("doctor_id is required for the doctor queue", []string{"doctor_id"})
	}

	filter := model.VisitFilter{}
	if !f.AllDates {
		filter.Date = f.Date
		if filter.Date == "" {
			filter.Date = model.Day(s.now())
		}
	}

	visits, err := s.store.Visits().List(ctx, filter)
	if err != nil {
		return nil, repository.Translate("visits", err)
	}

	var (
		selected []*model.Visit
		txs      map[uuid.UUID]*model.Transaction
	)
	switch station {
	case StationReception:
		selected = Reception(visits)
	case StationDoctor:
		selected = Doctor(visits, f.DoctorID)
	case StationPharmacy:
		selected = Pharmacy(visits)
	case StationCashier:
		if txs, err = s.store.Transactions().GetMany(ctx, transactionIDs(visits)); err != nil {
			return nil, repository.Translate("transactions", err)
		}
		selected = Cashier(visits, txs)
	}

	return s.entries(ctx, station, selected, txs)
}

func (s *Service) entries(ctx context.Context, station Station, visits []*model.Visit, txs map[uuid.UUID]*model.Transaction) ([]Entry, error) {
	patientIDs := make([]uuid.UUID, 0, len(visits))
	for _, v := range visits {
		patientIDs = append(patientIDs, v.PatientID)
	}
	patients, err := s.store.Patients().GetMany(ctx, patientIDs)
	if err != nil {
		return nil, repository.Translate("patients", err)
	}
	doctors, err := s.doctorNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(visits))
	for _, v := range visits {
		e := Entry{
			VisitID:       v.ID,
			QueueNumber:   v.QueueNumber,
			Status:        v.Status,
			IsEmergency:   v.IsEmergency,
			Date:          v.Date,
			PatientID:     v.PatientID,
			PatientName:   UnknownPatient,
			DoctorID:      v.DoctorID,
			DoctorName:    UnassignedDoctor,
			TransactionID: v.TransactionID,
			CreatedAt:     v.CreatedAt,
		}
		if p, ok := patients[v.PatientID]; ok {
			e.PatientName = p.Name
		}
		if v.DoctorID != nil {
			name, ok := doctors[*v.DoctorID]
			if !ok {
				if name, ok, err = s.lookupDoctor(ctx, *v.DoctorID); err != nil {
					return nil, err
				}
				if ok {
					doctors = withDoctor(doctors, *v.DoctorID, name)
				}
			}
			if ok {
				e.DoctorName = name
			}
		}
		if station == StationPharmacy || station == StationDoctor {
			e.Prescription = v.Prescription
		}
		if station == StationCashier {
			e.AmountDue = s.calc.Total(v)
			if v.TransactionID != nil {
				if tx, ok := txs[*v.TransactionID]; ok {
					e.AmountDue = tx.Amount
				}
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// doctorNames caches the roster for the label TTL.
func (s *Service) doctorNames(ctx context.Context) (map[uuid.UUID]string, error) {
	if cached, ok := s.labels.Get(doctorsCacheKey); ok {
		return cached.(map[uuid.UUID]string), nil
	}
	doctors, err := s.store.Users().ListByRole(ctx, model.RoleDoctor)
	if err != nil {
		return nil, repository.Translate("doctors", err)
	}
	names := make(map[uuid.UUID]string, len(doctors))
	for _, d := range doctors {
		names[d.ID] = d.Name
	}
	s.labels.SetDefault(doctorsCacheKey, names)
	return names, nil
}

// lookupDoctor resolves a doctor missing from the cached roster and drops
// the roster so the next board reloads it.
func (s *Service) lookupDoctor(ctx context.Context, id uuid.UUID) (string, bool, error) {
	u, err := s.store.Users().Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, repository.Translate("doctor", err)
	}
	s.labels.Delete(doctorsCacheKey)
	return u.Name, true, nil
}

// withDoctor returns a copy of names with one more entry; the cached map is
// shared between requests and never written to.
func withDoctor(names map[uuid.UUID]string, id uuid.UUID, name string) map[uuid.UUID]string {
	out := make(map[uuid.UUID]string, len(names)+1)
	for k, v := range names {
		out[k] = v
	}
	out[id] = name
	return out
}

// Summary counts a day's visits per status for the reception dashboard.
func (s *Service) Summary(ctx context.Context, date string) (*Summary, error) {
	if date == "" {
		date = model.Day(s.now())
	}
	visits, err := s.store.Visits().List(ctx, model.VisitFilter{Date: date})
	if err != nil {
		return nil, repository.Translate("visits", err)
	}

	sum := &Summary{Date: date, ByStatus: make(map[model.VisitStatus]int)}
	for _, status := range []model.VisitStatus{
		model.VisitStatusWaiting, model.VisitStatusExamining, model.VisitStatusPharmacy,
		model.VisitStatusPayment, model.VisitStatusDone, model.VisitStatusSkipped,
	} {
		sum.ByStatus[status] = 0
	}
	for _, v := range visits {
		sum.Total++
		sum.ByStatus[v.Status]++
		if v.IsEmergency && v.Status != model.VisitStatusDone {
			sum.Emergency++
		}
	}
	return sum, nil
}

func transactionIDs(visits []*model.Visit) []uuid.UUID {
	var ids []uuid.UUID
	for _, v := range visits {
		if v.Status == model.VisitStatusPayment && v.TransactionID != nil {
			ids = append(ids, *v.TransactionID)
		}
	}
	return ids
}
