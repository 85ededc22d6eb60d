package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	fixture "github.com/jwalitptl/clinic-api/internal/testutil"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/messaging/local"
)

func newService(t *testing.T) (*Service, *fixture.Fixture) {
	f := fixture.New(t)
	svc := NewService(
		f.Store,
		NewCalculator(150000, ""),
		event.NewService(local.NewBroker(), "clinic.visits"),
		f.Validator,
		f.Metrics,
		f.Logger,
		f.Clock,
	)
	return svc, f
}

// payableVisit stores a visit that reached the cashier with a processed
// prescription but no transaction yet.
func payableVisit(t *testing.T, f *fixture.Fixture, status model.VisitStatus) *model.Visit {
	t.Helper()
	m := f.Medicine(t, "Amoxicillin 500mg")
	v := &model.Visit{
		PatientID:   f.Patient.ID,
		DoctorID:    &f.Doctor.ID,
		Date:        f.Today(),
		QueueNumber: "A-001",
		Status:      status,
		Prescription: &model.Prescription{
			ID:     uuid.New(),
			Status: model.PrescriptionStatusProcessed,
			Items: []model.PrescriptionItem{
				{MedicineID: m.ID, MedicineName: m.Name, Dosage: "3x1", Quantity: 2, UnitPrice: m.Price},
			},
		},
	}
	require.NoError(t, f.Store.Visits().Create(context.Background(), v))
	return v
}

func TestQuoteComputesLiveBill(t *testing.T) {
	svc, f := newService(t)
	v := payableVisit(t, f, model.VisitStatusPayment)

	bill, err := svc.Quote(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150000+2*12000), bill.Total)
	require.Len(t, bill.Items, 2)
	assert.Equal(t, model.ItemTypeService, bill.Items[0].Type)

	_, err = svc.Quote(context.Background(), uuid.New())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestConfirmCashPayment(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()
	v := payableVisit(t, f, model.VisitStatusPayment)

	receipt, err := svc.ConfirmPayment(ctx, v.ID, model.PaymentRequest{Method: model.PaymentMethodCash, Tendered: 200000})
	require.NoError(t, err)
	assert.Equal(t, int64(26000), receipt.Change)
	assert.Equal(t, model.TransactionStatusPaid, receipt.Transaction.Status)
	assert.Equal(t, fixture.Now, *receipt.Transaction.PaidAt)
	assert.Equal(t, f.Patient.Name, receipt.Transaction.PatientName)

	got, err := f.Store.Visits().Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusDone, got.Status)
	assert.Equal(t, model.PrescriptionStatusCompleted, got.Prescription.Status)
	assert.Equal(t, receipt.Transaction.ID, *got.TransactionID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.Metrics.PaymentsConfirmed.WithLabelValues("cash")))
	assert.Equal(t, 174000.0, testutil.ToFloat64(f.Metrics.RevenueTotal))

	_, err = svc.ConfirmPayment(ctx, v.ID, model.PaymentRequest{Method: model.PaymentMethodNonCash})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict))
}

func TestConfirmNonCashChargesExactAmount(t *testing.T) {
	svc, f := newService(t)
	v := payableVisit(t, f, model.VisitStatusPayment)

	receipt, err := svc.ConfirmPayment(context.Background(), v.ID, model.PaymentRequest{Method: model.PaymentMethodNonCash})
	require.NoError(t, err)
	assert.Equal(t, receipt.Transaction.Amount, receipt.Transaction.Tendered)
	assert.Zero(t, receipt.Change)
}

func TestInsufficientTenderLeavesVisitUnpaid(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()
	v := payableVisit(t, f, model.VisitStatusPayment)

	_, err := svc.ConfirmPayment(ctx, v.ID, model.PaymentRequest{Method: model.PaymentMethodCash, Tendered: 100000})
	require.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))

	got, err := f.Store.Visits().Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusPayment, got.Status)
	assert.Nil(t, got.TransactionID)

	txs, err := svc.Ledger(ctx, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestConfirmRejectsVisitNotAtCashier(t *testing.T) {
	svc, f := newService(t)
	v := payableVisit(t, f, model.VisitStatusPharmacy)

	_, err := svc.ConfirmPayment(context.Background(), v.ID, model.PaymentRequest{Method: model.PaymentMethodNonCash})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict))

	_, err = svc.ConfirmPayment(context.Background(), v.ID, model.PaymentRequest{Method: "card"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}

func TestLedgerFiltersByStatus(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()

	paid := payableVisit(t, f, model.VisitStatusPayment)
	_, err := svc.ConfirmPayment(ctx, paid.ID, model.PaymentRequest{Method: model.PaymentMethodNonCash})
	require.NoError(t, err)

	pending := &model.Transaction{VisitID: uuid.New(), PatientName: "Other", Amount: 150000, Status: model.TransactionStatusPending, Date: f.Today()}
	require.NoError(t, f.Store.Transactions().Create(ctx, pending))

	all, err := svc.Ledger(ctx, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyPaid, err := svc.Ledger(ctx, model.TransactionFilter{Status: model.TransactionStatusPaid})
	require.NoError(t, err)
	require.Len(t, onlyPaid, 1)
	assert.Equal(t, paid.ID, onlyPaid[0].VisitID)
}
