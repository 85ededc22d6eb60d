package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const unknownPatient = "Unknown patient"

type Service struct {
	store     repository.Store
	calc      Calculator
	events    *event.Service
	validator validator.Validator
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(
	store repository.Store,
	calc Calculator,
	events *event.Service,
	v validator.Validator,
	m *metrics.Metrics,
	log *logger.Logger,
	clock func() time.Time,
) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{store: store, calc: calc, events: events, validator: v, metrics: m, logger: log, now: clock}
}

// Quote returns the bill for a visit. Once a transaction exists its
// snapshot is authoritative; before that the bill is computed live.
func (s *Service) Quote(ctx context.Context, visitID uuid.UUID) (*model.Bill, error) {
	visit, err := s.store.Visits().Get(ctx, visitID)
	if err != nil {
		return nil, repository.Translate("visit", err)
	}

	if visit.TransactionID != nil {
		tx, err := s.store.Transactions().Get(ctx, *visit.TransactionID)
		if err == nil {
			return &model.Bill{VisitID: visit.ID, Items: tx.Items, Total: tx.Amount}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, repository.Translate("transaction", err)
		}
	}

	return &model.Bill{VisitID: visit.ID, Items: s.calc.Items(visit), Total: s.calc.Total(visit)}, nil
}

// ConfirmPayment settles a visit at the cashier: the transaction becomes
// paid, the visit done and any prescription completed, all in one unit of work.
func (s *Service) ConfirmPayment(ctx context.Context, visitID uuid.UUID, req model.PaymentRequest) (*model.Receipt, error) {
	if err := s.validator.Validate(&req); err != nil {
		return nil, err
	}

	var receipt *model.Receipt
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		visit, err := uow.Visits().Get(ctx, visitID)
		if err != nil {
			return repository.Translate("visit", err)
		}
		if visit.Status == model.VisitStatusDone {
			return apperrors.Conflict("visit is already paid")
		}
		if !visit.Status.CanTransitionTo(model.VisitStatusDone) {
			return apperrors.Conflict("visit is not awaiting payment (status " + string(visit.Status) + ")")
		}

		tx, err := s.pendingTransaction(ctx, uow, visit)
		if err != nil {
			return err
		}

		change := int64(0)
		tendered := tx.Amount
		if req.Method == model.PaymentMethodCash {
			tendered = req.Tendered
			if change, err = Change(tx.Amount, tendered); err != nil {
				return apperrors.Validation(err.Error(), []string{"tendered"})
			}
		}

		paidAt := s.now()
		tx.Status = model.TransactionStatusPaid
		tx.Method = req.Method
		tx.Tendered = tendered
		tx.Change = change
		tx.PaidAt = &paidAt
		if err := uow.Transactions().Update(ctx, tx); err != nil {
			return repository.Translate("transaction", err)
		}

		from := visit.Status
		visit.Status = model.VisitStatusDone
		visit.TransactionID = &tx.ID
		if visit.Prescription != nil {
			visit.Prescription.Status = model.PrescriptionStatusCompleted
		}
		if err := uow.Visits().Update(ctx, visit); err != nil {
			return repository.Translate("visit", err)
		}
		if err := s.events.VisitChanged(ctx, uow.Outbox(), visit, from); err != nil {
			return apperrors.Unavailable(err)
		}

		receipt = &model.Receipt{Transaction: tx, Change: change}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentsConfirmed.WithLabelValues(string(req.Method)).Inc()
	s.metrics.RevenueTotal.Add(float64(receipt.Transaction.Amount))
	s.metrics.VisitTransitions.WithLabelValues(string(model.VisitStatusPayment), string(model.VisitStatusDone)).Inc()
	s.logger.Info("payment confirmed",
		"visit_id", visitID.String(),
		"transaction_id", receipt.Transaction.ID.String(),
		"method", string(req.Method),
		"amount", receipt.Transaction.Amount)
	return receipt, nil
}

// pendingTransaction loads the visit's bill, creating it from a live quote
// when the visit reached payment without one.
func (s *Service) pendingTransaction(ctx context.Context, uow repository.UnitOfWork, visit *model.Visit) (*model.Transaction, error) {
	if visit.TransactionID != nil {
		tx, err := uow.Transactions().Get(ctx, *visit.TransactionID)
		if err == nil {
			if tx.Status == model.TransactionStatusPaid {
				return nil, apperrors.Conflict("transaction is already paid")
			}
			return tx, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, repository.Translate("transaction", err)
		}
	}

	name := unknownPatient
	if p, err := uow.Patients().Get(ctx, visit.PatientID); err == nil {
		name = p.Name
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, repository.Translate("patient", err)
	}

	tx := s.calc.Transaction(visit, name)
	if err := uow.Transactions().Create(ctx, tx); err != nil {
		return nil, repository.Translate("transaction", err)
	}
	return tx, nil
}

// Ledger lists transactions newest first.
func (s *Service) Ledger(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error) {
	txs, err := s.store.Transactions().List(ctx, filter)
	if err != nil {
		return nil, repository.Translate("transactions", err)
	}
	if txs == nil {
		txs = []*model.Transaction{}
	}
	return txs, nil
}
