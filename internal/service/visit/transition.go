package visit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Advance moves a visit to its next station on behalf of actor. What
// happens depends on the current status:
//
//	waiting, skipped -> examining  (requires an assigned doctor)
//	examining        -> pharmacy   (medical record + prescription)
//	examining        -> payment    (medical record, no prescription)
//	pharmacy         -> payment    (dispenses stock atomically)
//
// Payment is confirmed through the billing service, never here. The
// actor must staff the station the visit is at when the transaction
// reads it. A doctor always acts as themselves; an admin may name the
// doctor in req.DoctorID.
func (s *Service) Advance(ctx context.Context, id uuid.UUID, actor model.Actor, req model.AdvanceRequest) (*model.Visit, error) {
	if err := s.validator.Validate(&req); err != nil {
		return nil, err
	}
	doctorID, err := s.actingDoctor(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	var (
		visit     *model.Visit
		from      model.VisitStatus
		shortages []model.StockShortage
	)
	err = s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		v, err := uow.Visits().Get(ctx, id)
		if err != nil {
			return repository.Translate("visit", err)
		}
		from = v.Status

		if station, ok := v.Status.AdvancingStation(); ok && !actor.CanWork(station) {
			return apperrors.Forbidden("visit is at the " + string(station) + " station")
		}

		switch v.Status {
		case model.VisitStatusWaiting, model.VisitStatusSkipped:
			err = s.startExamination(v, doctorID)
		case model.VisitStatusExamining:
			if err = checkDoctor(v, doctorID); err == nil {
				err = s.completeExamination(ctx, uow, v, req)
			}
		case model.VisitStatusPharmacy:
			shortages, err = s.dispense(ctx, uow, v)
		case model.VisitStatusPayment:
			err = apperrors.Conflict("visit is awaiting payment at the cashier")
		case model.VisitStatusDone:
			err = apperrors.Conflict("visit is already done")
		default:
			err = apperrors.Conflict(fmt.Sprintf("visit has unknown status %q", v.Status))
		}
		if err != nil {
			return err
		}

		if err := uow.Visits().Update(ctx, v); err != nil {
			return repository.Translate("visit", err)
		}
		if err := s.events.VisitChanged(ctx, uow.Outbox(), v, from); err != nil {
			return apperrors.Unavailable(err)
		}
		visit = v
		return nil
	})
	if len(shortages) > 0 {
		s.metrics.DispenseFailures.Inc()
		s.logger.Warn("insufficient stock to dispense",
			"visit_id", id.String(),
			"shortages", len(shortages))
	}
	if err != nil {
		return nil, err
	}

	s.recordTransition(visit, from)
	return visit, nil
}

// Skip parks a visit whose patient did not answer the call.
func (s *Service) Skip(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	var (
		visit *model.Visit
		from  model.VisitStatus
	)
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		v, err := uow.Visits().Get(ctx, id)
		if err != nil {
			return repository.Translate("visit", err)
		}
		from = v.Status
		if err := moveTo(v, model.VisitStatusSkipped); err != nil {
			return err
		}
		if err := uow.Visits().Update(ctx, v); err != nil {
			return repository.Translate("visit", err)
		}
		if err := s.events.VisitChanged(ctx, uow.Outbox(), v, from); err != nil {
			return apperrors.Unavailable(err)
		}
		visit = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(visit, from)
	return visit, nil
}

// Cancel deletes a visit that has not been examined yet.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	var visit *model.Visit
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		v, err := uow.Visits().Get(ctx, id)
		if err != nil {
			return repository.Translate("visit", err)
		}
		if !v.Status.Cancellable() {
			return apperrors.Conflict(fmt.Sprintf("a %s visit cannot be cancelled", v.Status))
		}
		if err := uow.Visits().Delete(ctx, v.ID); err != nil {
			return repository.Translate("visit", err)
		}
		if err := s.events.VisitCancelled(ctx, uow.Outbox(), v); err != nil {
			return apperrors.Unavailable(err)
		}
		visit = v
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("visit cancelled",
		"visit_id", visit.ID.String(),
		"queue_number", visit.QueueNumber,
		"from", string(visit.Status))
	return nil
}

// actingDoctor resolves whose hands a visit is in. It returns nil when an
// admin advances without naming a doctor.
func (s *Service) actingDoctor(ctx context.Context, actor model.Actor, req model.AdvanceRequest) (*uuid.UUID, error) {
	switch {
	case actor.Role == model.RoleDoctor:
		if req.DoctorID != nil && *req.DoctorID != actor.UserID {
			return nil, apperrors.Forbidden("doctors can only advance visits as themselves")
		}
		id := actor.UserID
		return &id, nil
	case req.DoctorID != nil:
		if err := s.requireDoctor(ctx, *req.DoctorID); err != nil {
			return nil, err
		}
		id := *req.DoctorID
		return &id, nil
	}
	return nil, nil
}

// checkDoctor rejects a doctor other than the one the visit is assigned to.
func checkDoctor(v *model.Visit, doctorID *uuid.UUID) error {
	if doctorID != nil && v.DoctorID != nil && *v.DoctorID != *doctorID {
		return apperrors.Conflict("visit is assigned to another doctor")
	}
	return nil
}

func (s *Service) startExamination(v *model.Visit, doctorID *uuid.UUID) error {
	if err := checkDoctor(v, doctorID); err != nil {
		return err
	}
	if v.DoctorID == nil && doctorID != nil {
		id := *doctorID
		v.DoctorID = &id
	}
	if v.DoctorID == nil {
		return apperrors.Validation("a doctor must be assigned before examination", []string{"doctor_id is required"})
	}
	return moveTo(v, model.VisitStatusExamining)
}

func (s *Service) completeExamination(ctx context.Context, uow repository.UnitOfWork, v *model.Visit, req model.AdvanceRequest) error {
	if req.MedicalRecord == nil {
		return apperrors.Validation("medical record is required to complete an examination", []string{
			"complaints is required",
			"findings is required",
			"diagnosis is required",
		})
	}

	items, err := s.prescribe(ctx, uow, req.Prescription)
	if err != nil {
		return err
	}

	now := s.cfg.Clock()
	v.MedicalRecord = &model.MedicalRecord{
		ID:         uuid.New(),
		Complaints: req.MedicalRecord.Complaints,
		Findings:   req.MedicalRecord.Findings,
		Diagnosis:  req.MedicalRecord.Diagnosis,
		RecordedAt: now,
	}

	if len(items) == 0 {
		if err := moveTo(v, model.VisitStatusPayment); err != nil {
			return err
		}
		return s.openBill(ctx, uow, v)
	}

	v.Prescription = &model.Prescription{
		ID:        uuid.New(),
		Items:     items,
		Status:    model.PrescriptionStatusPending,
		CreatedAt: now,
	}
	return moveTo(v, model.VisitStatusPharmacy)
}

// prescribe snapshots catalog name and price onto each line.
func (s *Service) prescribe(ctx context.Context, uow repository.UnitOfWork, lines []model.PrescriptionLine) ([]model.PrescriptionItem, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MedicineID)
	}
	catalog, err := uow.Medicines().GetMany(ctx, ids)
	if err != nil {
		return nil, repository.Translate("medicines", err)
	}

	var unknown []string
	items := make([]model.PrescriptionItem, 0, len(lines))
	for i, l := range lines {
		m, ok := catalog[l.MedicineID]
		if !ok {
			unknown = append(unknown, fmt.Sprintf("prescription[%d].medicine_id is not in the catalog", i))
			continue
		}
		items = append(items, model.PrescriptionItem{
			MedicineID:   m.ID,
			MedicineName: m.Name,
			Dosage:       l.Dosage,
			Quantity:     l.Quantity,
			UnitPrice:    m.Price,
		})
	}
	if len(unknown) > 0 {
		return nil, apperrors.Validation("prescription references unknown medicine", unknown)
	}
	return items, nil
}

// dispense decrements stock for every prescribed medicine. Any shortage
// fails the whole call so the surrounding transaction rolls back the
// decrements already applied.
func (s *Service) dispense(ctx context.Context, uow repository.UnitOfWork, v *model.Visit) ([]model.StockShortage, error) {
	if v.Prescription != nil && v.Prescription.Status != model.PrescriptionStatusPending {
		return nil, apperrors.Conflict("prescription has already been dispensed")
	}

	var (
		order     []uuid.UUID
		requested = make(map[uuid.UUID]int)
		names     = make(map[uuid.UUID]string)
	)
	if v.Prescription != nil {
		for _, item := range v.Prescription.Items {
			if _, seen := requested[item.MedicineID]; !seen {
				order = append(order, item.MedicineID)
				names[item.MedicineID] = item.MedicineName
			}
			requested[item.MedicineID] += item.Quantity
		}
	}

	var shortages []model.StockShortage
	for _, id := range order {
		err := uow.Medicines().DecrementStock(ctx, id, requested[id])
		switch {
		case err == nil:
			continue
		case errors.Is(err, repository.ErrInsufficientStock):
			available := 0
			if m, getErr := uow.Medicines().Get(ctx, id); getErr == nil {
				available = m.Stock
			}
			shortages = append(shortages, model.StockShortage{
				MedicineID:   id,
				MedicineName: names[id],
				Requested:    requested[id],
				Available:    available,
			})
		case errors.Is(err, repository.ErrNotFound):
			shortages = append(shortages, model.StockShortage{
				MedicineID:   id,
				MedicineName: names[id],
				Requested:    requested[id],
			})
		default:
			return nil, repository.Translate("medicine", err)
		}
	}
	if len(shortages) > 0 {
		return shortages, apperrors.InsufficientStock(shortages)
	}

	if v.Prescription != nil {
		v.Prescription.Status = model.PrescriptionStatusProcessed
	}
	if err := moveTo(v, model.VisitStatusPayment); err != nil {
		return nil, err
	}
	return nil, s.openBill(ctx, uow, v)
}

// openBill records the pending transaction for a visit entering payment.
func (s *Service) openBill(ctx context.Context, uow repository.UnitOfWork, v *model.Visit) error {
	name := unknownPatient
	if p, err := uow.Patients().Get(ctx, v.PatientID); err == nil {
		name = p.Name
	} else if !errors.Is(err, repository.ErrNotFound) {
		return repository.Translate("patient", err)
	}

	tx := s.calc.Transaction(v, name)
	if err := uow.Transactions().Create(ctx, tx); err != nil {
		return repository.Translate("transaction", err)
	}
	v.TransactionID = &tx.ID
	return nil
}

func moveTo(v *model.Visit, next model.VisitStatus) error {
	if !v.Status.CanTransitionTo(next) {
		return apperrors.Conflict(fmt.Sprintf("cannot move visit from %s to %s", v.Status, next))
	}
	v.Status = next
	return nil
}

func (s *Service) recordTransition(v *model.Visit, from model.VisitStatus) {
	s.metrics.VisitTransitions.WithLabelValues(string(from), string(v.Status)).Inc()
	s.logger.Info("visit status changed",
		"visit_id", v.ID.String(),
		"queue_number", v.QueueNumber,
		"from", string(from),
		"to", string(v.Status))
}
