package queue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/billing"
	fixture "github.com/jwalitptl/clinic-api/internal/testutil"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type board struct {
	t   *testing.T
	f   *fixture.Fixture
	svc *Service
}

func newBoard(t *testing.T) *board {
	f := fixture.New(t)
	return &board{
		t:   t,
		f:   f,
		svc: NewService(f.Store, billing.NewCalculator(150000, ""), 0, f.Metrics, f.Clock),
	}
}

func (b *board) add(number string, status model.VisitStatus, doctor *uuid.UUID, mutate ...func(*model.Visit)) *model.Visit {
	b.t.Helper()
	v := &model.Visit{
		PatientID:   b.f.Patient.ID,
		DoctorID:    doctor,
		Date:        b.f.Today(),
		QueueNumber: number,
		IsEmergency: number[0] == 'E',
		Status:      status,
	}
	for _, m := range mutate {
		m(v)
	}
	require.NoError(b.t, b.f.Store.Visits().Create(context.Background(), v))
	return v
}

func queueNumbers(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.QueueNumber
	}
	return out
}

func TestListReceptionJoinsLabels(t *testing.T) {
	b := newBoard(t)
	rani := b.f.Doctor.ID
	b.add("A-001", model.VisitStatusWaiting, &rani)
	b.add("E-001", model.VisitStatusWaiting, nil)
	b.add("A-002", model.VisitStatusDone, &rani)

	entries, err := b.svc.ListQueue(context.Background(), StationReception, Filters{})
	require.NoError(t, err)
	require.Equal(t, []string{"E-001", "A-001"}, queueNumbers(entries))
	assert.Equal(t, UnassignedDoctor, entries[0].DoctorName)
	assert.Equal(t, "dr. Rani Kusuma", entries[1].DoctorName)
	assert.Equal(t, b.f.Patient.Name, entries[1].PatientName)
}

func TestListNamesDoctorAddedAfterRosterCached(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()
	rani := b.f.Doctor.ID
	b.add("A-001", model.VisitStatusWaiting, &rani)

	_, err := b.svc.ListQueue(ctx, StationReception, Filters{})
	require.NoError(t, err)

	locum := &model.User{Username: "dr.sari", Name: "dr. Sari Wulandari", Role: model.RoleDoctor}
	require.NoError(t, b.f.Store.Users().Create(ctx, locum))
	b.add("A-002", model.VisitStatusWaiting, &locum.ID)

	entries, err := b.svc.ListQueue(ctx, StationReception, Filters{})
	require.NoError(t, err)
	require.Equal(t, []string{"A-001", "A-002"}, queueNumbers(entries))
	assert.Equal(t, "dr. Sari Wulandari", entries[1].DoctorName)

	_, cached := b.svc.labels.Get(doctorsCacheKey)
	assert.False(t, cached)
}

func TestListUsesTodayUnlessAllDates(t *testing.T) {
	b := newBoard(t)
	b.add("A-001", model.VisitStatusWaiting, nil, func(v *model.Visit) { v.Date = "2026-03-01" })
	b.add("A-001", model.VisitStatusWaiting, nil)

	today, err := b.svc.ListQueue(context.Background(), StationReception, Filters{})
	require.NoError(t, err)
	assert.Len(t, today, 1)

	yesterday, err := b.svc.ListQueue(context.Background(), StationReception, Filters{Date: "2026-03-01"})
	require.NoError(t, err)
	require.Len(t, yesterday, 1)
	assert.Equal(t, "2026-03-01", yesterday[0].Date)

	all, err := b.svc.ListQueue(context.Background(), StationReception, Filters{AllDates: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDoctorQueueShowsOwnAndUnassigned(t *testing.T) {
	b := newBoard(t)
	rani, budi := b.f.Doctor.ID, b.f.OtherDoctor.ID
	b.add("A-001", model.VisitStatusWaiting, &budi)
	b.add("A-002", model.VisitStatusExamining, &rani)
	b.add("A-003", model.VisitStatusWaiting, nil)
	b.add("A-004", model.VisitStatusPharmacy, &rani)

	entries, err := b.svc.ListQueue(context.Background(), StationDoctor, Filters{DoctorID: rani})
	require.NoError(t, err)
	assert.Equal(t, []string{"A-002", "A-003"}, queueNumbers(entries))

	_, err = b.svc.ListQueue(context.Background(), StationDoctor, Filters{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}

func TestPharmacyAndCashierBoards(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()
	rani := b.f.Doctor.ID
	m := b.f.Medicine(t, "Antasida")
	pending := &model.Prescription{
		ID:     uuid.New(),
		Status: model.PrescriptionStatusPending,
		Items:  []model.PrescriptionItem{{MedicineID: m.ID, MedicineName: m.Name, Dosage: "3x1", Quantity: 1, UnitPrice: m.Price}},
	}
	b.add("A-001", model.VisitStatusPharmacy, &rani, func(v *model.Visit) { v.Prescription = pending })

	paid := &model.Transaction{VisitID: uuid.New(), Amount: 150000, Status: model.TransactionStatusPaid, Date: b.f.Today()}
	require.NoError(t, b.f.Store.Transactions().Create(ctx, paid))
	open := &model.Transaction{VisitID: uuid.New(), Amount: 158000, Status: model.TransactionStatusPending, Date: b.f.Today()}
	require.NoError(t, b.f.Store.Transactions().Create(ctx, open))

	b.add("A-002", model.VisitStatusPayment, &rani, func(v *model.Visit) { v.TransactionID = &paid.ID })
	b.add("A-003", model.VisitStatusPayment, &rani, func(v *model.Visit) { v.TransactionID = &open.ID })
	b.add("A-004", model.VisitStatusPayment, &rani)

	pharmacy, err := b.svc.ListQueue(ctx, StationPharmacy, Filters{})
	require.NoError(t, err)
	require.Equal(t, []string{"A-001"}, queueNumbers(pharmacy))
	require.NotNil(t, pharmacy[0].Prescription)

	cashier, err := b.svc.ListQueue(ctx, StationCashier, Filters{})
	require.NoError(t, err)
	require.Equal(t, []string{"A-003", "A-004"}, queueNumbers(cashier))
	assert.Equal(t, int64(158000), cashier[0].AmountDue)
	assert.Equal(t, int64(150000), cashier[1].AmountDue)
}

func TestListRejectsUnknownStation(t *testing.T) {
	b := newBoard(t)

	_, err := b.svc.ListQueue(context.Background(), Station("lab"), Filters{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}

func TestSummaryCountsByStatus(t *testing.T) {
	b := newBoard(t)
	b.add("A-001", model.VisitStatusWaiting, nil)
	b.add("E-001", model.VisitStatusExamining, nil)
	b.add("A-002", model.VisitStatusDone, nil)

	sum, err := b.svc.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, b.f.Today(), sum.Date)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Emergency)
	assert.Equal(t, 1, sum.ByStatus[model.VisitStatusDone])
	assert.Equal(t, 0, sum.ByStatus[model.VisitStatusPharmacy])
}
