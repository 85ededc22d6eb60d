package queue

import (
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

type Station = model.Station

const (
	StationReception = model.StationReception
	StationDoctor    = model.StationDoctor
	StationPharmacy  = model.StationPharmacy
	StationCashier   = model.StationCashier
)

func ParseStation(s string) (Station, bool) {
	switch st := Station(s); st {
	case StationReception, StationDoctor, StationPharmacy, StationCashier:
		return st, true
	}
	return "", false
}

// The station functions below never reorder their input except where
// stated, and never modify the visits they are given.

// Reception lists every visit not yet done: emergencies first, skipped
// visits last, insertion order otherwise.
func Reception(visits []*model.Visit) []*model.Visit {
	out := make([]*model.Visit, 0, len(visits))
	for _, v := range visits {
		if v.Status != model.VisitStatusDone {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return receptionRank(out[i]) < receptionRank(out[j])
	})
	return out
}

func receptionRank(v *model.Visit) int {
	switch {
	case v.Status == model.VisitStatusSkipped:
		return 2
	case v.IsEmergency:
		return 0
	default:
		return 1
	}
}

// Doctor lists waiting or examining visits assigned to doctorID or to nobody.
func Doctor(visits []*model.Visit, doctorID uuid.UUID) []*model.Visit {
	out := make([]*model.Visit, 0)
	for _, v := range visits {
		if v.Status != model.VisitStatusWaiting && v.Status != model.VisitStatusExamining {
			continue
		}
		if v.DoctorID == nil || *v.DoctorID == doctorID {
			out = append(out, v)
		}
	}
	return out
}

// Pharmacy lists visits at the pharmacy whose prescription is still pending.
func Pharmacy(visits []*model.Visit) []*model.Visit {
	out := make([]*model.Visit, 0)
	for _, v := range visits {
		if v.Status == model.VisitStatusPharmacy && v.Prescription != nil &&
			v.Prescription.Status == model.PrescriptionStatusPending {
			out = append(out, v)
		}
	}
	return out
}

// Cashier lists visits awaiting payment that have no paid transaction.
func Cashier(visits []*model.Visit, txByID map[uuid.UUID]*model.Transaction) []*model.Visit {
	out := make([]*model.Visit, 0)
	for _, v := range visits {
		if v.Status != model.VisitStatusPayment {
			continue
		}
		if v.TransactionID != nil {
			if tx, ok := txByID[*v.TransactionID]; ok && tx.Status == model.TransactionStatusPaid {
				continue
			}
		}
		out = append(out, v)
	}
	return out
}
