package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/billing"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const (
	EmergencyPatientName = "Emergency Patient"
	unknownPatient       = "Unknown patient"
)

type Config struct {
	RegularPrefix   string
	EmergencyPrefix string
	NumberWidth     int
	Clock           func() time.Time
}

type Service struct {
	store     repository.Store
	calc      billing.Calculator
	events    *event.Service
	validator validator.Validator
	metrics   *metrics.Metrics
	logger    *logger.Logger
	cfg       Config
}

func NewService(
	store repository.Store,
	calc billing.Calculator,
	events *event.Service,
	v validator.Validator,
	m *metrics.Metrics,
	log *logger.Logger,
	cfg Config,
) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.RegularPrefix == "" {
		cfg.RegularPrefix = "A-"
	}
	if cfg.EmergencyPrefix == "" {
		cfg.EmergencyPrefix = "E-"
	}
	if cfg.NumberWidth <= 0 {
		cfg.NumberWidth = 3
	}
	return &Service{store: store, calc: calc, events: events, validator: v, metrics: m, logger: log, cfg: cfg}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	v, err := s.store.Visits().Get(ctx, id)
	if err != nil {
		return nil, repository.Translate("visit", err)
	}
	return v, nil
}

// Register queues an existing patient.
func (s *Service) Register(ctx context.Context, req model.RegisterVisitRequest) (*model.Registration, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperrors.Validation("patient_id is required", []string{"patient_id"})
	}
	if err := s.requireDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	var reg *model.Registration
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		patient, err := uow.Patients().Get(ctx, req.PatientID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.Validation("unknown patient", []string{"patient_id"})
		}
		if err != nil {
			return repository.Translate("patient", err)
		}
		v, err := s.createVisit(ctx, uow, patient.ID, req.DoctorID, req.IsEmergency)
		if err != nil {
			return err
		}
		reg = &model.Registration{Visit: v, Patient: patient}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logRegistration(reg)
	return reg, nil
}

// RegisterPatient creates a patient record and queues them in one step.
func (s *Service) RegisterPatient(ctx context.Context, req model.RegisterPatientRequest) (*model.Registration, error) {
	if err := s.validator.Validate(&req.Patient); err != nil {
		return nil, err
	}
	if err := s.requireDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	patient := &model.Patient{
		Name:            req.Patient.Name,
		NIK:             req.Patient.NIK,
		BirthDate:       req.Patient.BirthDate,
		Address:         req.Patient.Address,
		Phone:           req.Patient.Phone,
		Type:            req.Patient.Type,
		InsuranceNumber: req.Patient.InsuranceNumber,
	}
	if patient.Type == "" {
		patient.Type = model.PatientTypeGeneral
	}
	return s.registerNew(ctx, patient, req.DoctorID, false)
}

// RegisterEmergency queues an emergency visit for a placeholder patient
// whose details are completed later.
func (s *Service) RegisterEmergency(ctx context.Context, req model.RegisterEmergencyRequest) (*model.Registration, error) {
	if err := s.requireDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = EmergencyPatientName
	}
	patient := &model.Patient{
		Name:          name,
		NIK:           fmt.Sprintf("EMERGENCY-%d", s.cfg.Clock().Unix()),
		Address:       "-",
		Phone:         "-",
		Type:          model.PatientTypeGeneral,
		IsPlaceholder: true,
	}
	return s.registerNew(ctx, patient, req.DoctorID, true)
}

func (s *Service) registerNew(ctx context.Context, patient *model.Patient, doctorID uuid.UUID, emergency bool) (*model.Registration, error) {
	var reg *model.Registration
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		if err := uow.Patients().Create(ctx, patient); err != nil {
			return repository.Translate("patient", err)
		}
		v, err := s.createVisit(ctx, uow, patient.ID, doctorID, emergency)
		if err != nil {
			return err
		}
		reg = &model.Registration{Visit: v, Patient: patient}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logRegistration(reg)
	return reg, nil
}

func (s *Service) createVisit(ctx context.Context, uow repository.UnitOfWork, patientID, doctorID uuid.UUID, emergency bool) (*model.Visit, error) {
	date := model.Day(s.cfg.Clock())
	n, err := uow.Visits().NextQueueNumber(ctx, date, emergency)
	if err != nil {
		return nil, repository.Translate("visits", err)
	}

	v := &model.Visit{
		PatientID:   patientID,
		DoctorID:    &doctorID,
		Date:        date,
		QueueNumber: s.queueNumber(emergency, n),
		IsEmergency: emergency,
		Status:      model.VisitStatusWaiting,
	}
	if err := uow.Visits().Create(ctx, v); err != nil {
		return nil, repository.Translate("visit", err)
	}
	if err := s.events.VisitChanged(ctx, uow.Outbox(), v, ""); err != nil {
		return nil, apperrors.Unavailable(err)
	}
	return v, nil
}

// queueNumber formats n as E-001 / A-001.
func (s *Service) queueNumber(emergency bool, n int) string {
	prefix := s.cfg.RegularPrefix
	if emergency {
		prefix = s.cfg.EmergencyPrefix
	}
	return fmt.Sprintf("%s%0*d", prefix, s.cfg.NumberWidth, n)
}

// requireDoctor checks id names a doctor. It must run outside WithinTx.
func (s *Service) requireDoctor(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperrors.Validation("doctor_id is required", []string{"doctor_id"})
	}
	u, err := s.store.Users().Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && u.Role != model.RoleDoctor) {
		return apperrors.Validation("unknown doctor", []string{"doctor_id"})
	}
	if err != nil {
		return repository.Translate("doctor", err)
	}
	return nil
}

func (s *Service) logRegistration(reg *model.Registration) {
	s.metrics.VisitTransitions.WithLabelValues("", string(model.VisitStatusWaiting)).Inc()
	s.logger.Info("visit registered",
		"visit_id", reg.Visit.ID.String(),
		"queue_number", reg.Visit.QueueNumber,
		"emergency", reg.Visit.IsEmergency,
		"to", string(model.VisitStatusWaiting))
}
