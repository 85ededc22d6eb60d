package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	allowed := map[VisitStatus][]VisitStatus{
		VisitStatusWaiting:   {VisitStatusExamining, VisitStatusSkipped},
		VisitStatusExamining: {VisitStatusPharmacy, VisitStatusPayment, VisitStatusSkipped},
		VisitStatusPharmacy:  {VisitStatusPayment},
		VisitStatusPayment:   {VisitStatusDone},
		VisitStatusSkipped:   {VisitStatusExamining},
		VisitStatusDone:      {},
	}
	all := []VisitStatus{
		VisitStatusWaiting, VisitStatusExamining, VisitStatusPharmacy,
		VisitStatusPayment, VisitStatusDone, VisitStatusSkipped,
	}

	for from, targets := range allowed {
		for _, to := range all {
			assert.Equal(t, contains(targets, to), from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestCancellable(t *testing.T) {
	assert.True(t, VisitStatusWaiting.Cancellable())
	assert.True(t, VisitStatusSkipped.Cancellable())
	for _, s := range []VisitStatus{VisitStatusExamining, VisitStatusPharmacy, VisitStatusPayment, VisitStatusDone} {
		assert.False(t, s.Cancellable(), s)
	}
}

func TestParseVisitStatusNormalizesCashier(t *testing.T) {
	s, ok := ParseVisitStatus("cashier")
	assert.True(t, ok)
	assert.Equal(t, VisitStatusPayment, s)

	_, ok = ParseVisitStatus("lobby")
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	doctor := uuid.New()
	v := &Visit{
		DoctorID:     &doctor,
		Prescription: &Prescription{Items: []PrescriptionItem{{Quantity: 1}}},
	}
	c := v.Clone()
	c.Prescription.Items[0].Quantity = 5
	*c.DoctorID = uuid.New()

	assert.Equal(t, 1, v.Prescription.Items[0].Quantity)
	assert.Equal(t, doctor, *v.DoctorID)
}

func TestVisitFilterMatches(t *testing.T) {
	doctor := uuid.New()
	v := &Visit{Date: "2026-10-15", Status: VisitStatusWaiting, DoctorID: &doctor}

	assert.True(t, VisitFilter{}.Matches(v))
	assert.True(t, VisitFilter{Date: "2026-10-15", Statuses: []VisitStatus{VisitStatusSkipped, VisitStatusWaiting}}.Matches(v))
	assert.False(t, VisitFilter{Date: "2026-10-14"}.Matches(v))
	other := uuid.New()
	assert.False(t, VisitFilter{DoctorID: &other}.Matches(v))
}

func contains(list []VisitStatus, s VisitStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
