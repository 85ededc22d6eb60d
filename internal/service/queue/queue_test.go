package queue

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/clinic-api/internal/model"
)

func visit(n string, status model.VisitStatus, emergency bool) *model.Visit {
	return &model.Visit{ID: uuid.New(), QueueNumber: n, Status: status, IsEmergency: emergency}
}

func numbers(visits []*model.Visit) []string {
	out := make([]string, len(visits))
	for i, v := range visits {
		out[i] = v.QueueNumber
	}
	return out
}

func TestReceptionOrdering(t *testing.T) {
	in := []*model.Visit{
		visit("A-001", model.VisitStatusSkipped, false),
		visit("A-002", model.VisitStatusWaiting, false),
		visit("E-001", model.VisitStatusWaiting, true),
		visit("A-003", model.VisitStatusDone, false),
		visit("E-002", model.VisitStatusSkipped, true),
		visit("A-004", model.VisitStatusExamining, false),
		visit("E-003", model.VisitStatusPharmacy, true),
	}

	got := Reception(in)

	assert.Equal(t, []string{"E-001", "E-003", "A-002", "A-004", "A-001", "E-002"}, numbers(got))
	assert.Equal(t, "A-001", in[0].QueueNumber, "input must not be reordered")
}

func TestReceptionEmpty(t *testing.T) {
	assert.Empty(t, Reception(nil))
	assert.NotNil(t, Reception(nil))
}

func TestDoctorQueue(t *testing.T) {
	me, other := uuid.New(), uuid.New()
	mine := visit("A-001", model.VisitStatusWaiting, false)
	mine.DoctorID = &me
	theirs := visit("A-002", model.VisitStatusWaiting, false)
	theirs.DoctorID = &other
	unassigned := visit("A-003", model.VisitStatusExamining, false)
	atPharmacy := visit("A-004", model.VisitStatusPharmacy, false)
	atPharmacy.DoctorID = &me
	skipped := visit("A-005", model.VisitStatusSkipped, false)
	skipped.DoctorID = &me

	got := Doctor([]*model.Visit{mine, theirs, unassigned, atPharmacy, skipped}, me)
	assert.Equal(t, []string{"A-001", "A-003"}, numbers(got))
}

func TestPharmacyQueue(t *testing.T) {
	pending := visit("A-001", model.VisitStatusPharmacy, false)
	pending.Prescription = &model.Prescription{Status: model.PrescriptionStatusPending}
	processed := visit("A-002", model.VisitStatusPharmacy, false)
	processed.Prescription = &model.Prescription{Status: model.PrescriptionStatusProcessed}
	missing := visit("A-003", model.VisitStatusPharmacy, false)
	elsewhere := visit("A-004", model.VisitStatusPayment, false)
	elsewhere.Prescription = &model.Prescription{Status: model.PrescriptionStatusPending}

	got := Pharmacy([]*model.Visit{pending, processed, missing, elsewhere})
	assert.Equal(t, []string{"A-001"}, numbers(got))
}

func TestCashierQueue(t *testing.T) {
	paidID, pendingID := uuid.New(), uuid.New()
	txs := map[uuid.UUID]*model.Transaction{
		paidID:    {ID: paidID, Status: model.TransactionStatusPaid},
		pendingID: {ID: pendingID, Status: model.TransactionStatusPending},
	}
	withPending := visit("A-001", model.VisitStatusPayment, false)
	withPending.TransactionID = &pendingID
	withPaid := visit("A-002", model.VisitStatusPayment, false)
	withPaid.TransactionID = &paidID
	withoutTx := visit("A-003", model.VisitStatusPayment, false)
	done := visit("A-004", model.VisitStatusDone, false)

	got := Cashier([]*model.Visit{withPending, withPaid, withoutTx, done}, txs)
	assert.Equal(t, []string{"A-001", "A-003"}, numbers(got))
}

func TestParseStation(t *testing.T) {
	s, ok := ParseStation("pharmacy")
	assert.True(t, ok)
	assert.Equal(t, StationPharmacy, s)

	_, ok = ParseStation("radiology")
	assert.False(t, ok)
}
