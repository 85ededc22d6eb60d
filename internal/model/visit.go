package model

import (
	"time"

	"github.com/google/uuid"
)

type VisitStatus string

const (
	VisitStatusWaiting   VisitStatus = "waiting"
	VisitStatusExamining VisitStatus = "examining"
	VisitStatusPharmacy  VisitStatus = "pharmacy"
	VisitStatusPayment   VisitStatus = "payment"
	VisitStatusDone      VisitStatus = "done"
	VisitStatusSkipped   VisitStatus = "skipped"

	// visitStatusCashier is an accepted alias of VisitStatusPayment.
	visitStatusCashier VisitStatus = "cashier"
)

// visitTransitions is the complete set of legal status moves. Cancellation
// deletes the visit and is governed by Cancellable instead.
var visitTransitions = map[VisitStatus][]VisitStatus{
	VisitStatusWaiting:   {VisitStatusExamining, VisitStatusSkipped},
	VisitStatusExamining: {VisitStatusPharmacy, VisitStatusPayment, VisitStatusSkipped},
	VisitStatusPharmacy:  {VisitStatusPayment},
	VisitStatusPayment:   {VisitStatusDone},
	VisitStatusSkipped:   {VisitStatusExamining},
}

// ParseVisitStatus normalizes s, mapping "cashier" to payment.
func ParseVisitStatus(s string) (VisitStatus, bool) {
	status := VisitStatus(s)
	if status == visitStatusCashier {
		return VisitStatusPayment, true
	}
	return status, status.Valid()
}

func (s VisitStatus) Valid() bool {
	switch s {
	case VisitStatusWaiting, VisitStatusExamining, VisitStatusPharmacy,
		VisitStatusPayment, VisitStatusDone, VisitStatusSkipped:
		return true
	}
	return false
}

func (s VisitStatus) CanTransitionTo(next VisitStatus) bool {
	for _, allowed := range visitTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Cancellable reports whether a visit in this status may be withdrawn.
func (s VisitStatus) Cancellable() bool {
	return s == VisitStatusWaiting || s == VisitStatusSkipped
}

// Visit is one patient encounter moving through the stations.
type Visit struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	Seq           int64          `json:"seq" db:"seq"`
	PatientID     uuid.UUID      `json:"patient_id" db:"patient_id"`
	DoctorID      *uuid.UUID     `json:"doctor_id,omitempty" db:"doctor_id"`
	Date          string         `json:"date" db:"visit_date"`
	QueueNumber   string         `json:"queue_number" db:"queue_number"`
	IsEmergency   bool           `json:"is_emergency" db:"is_emergency"`
	Status        VisitStatus    `json:"status" db:"status"`
	MedicalRecord *MedicalRecord `json:"medical_record,omitempty" db:"-"`
	Prescription  *Prescription  `json:"prescription,omitempty" db:"-"`
	TransactionID *uuid.UUID     `json:"transaction_id,omitempty" db:"transaction_id"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// HasMedicine reports whether the doctor ordered at least one line.
func (v *Visit) HasMedicine() bool {
	return v.Prescription != nil && len(v.Prescription.Items) > 0
}

// Clone returns a deep copy.
func (v *Visit) Clone() *Visit {
	c := *v
	if v.DoctorID != nil {
		id := *v.DoctorID
		c.DoctorID = &id
	}
	if v.TransactionID != nil {
		id := *v.TransactionID
		c.TransactionID = &id
	}
	if v.MedicalRecord != nil {
		mr := *v.MedicalRecord
		c.MedicalRecord = &mr
	}
	if v.Prescription != nil {
		p := *v.Prescription
		p.Items = append([]PrescriptionItem(nil), v.Prescription.Items...)
		c.Prescription = &p
	}
	return &c
}

type VisitFilter struct {
	Date      string
	Statuses  []VisitStatus
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
}

// Matches applies the filter in memory; the postgres store pushes it into SQL.
func (f VisitFilter) Matches(v *Visit) bool {
	if f.Date != "" && v.Date != f.Date {
		return false
	}
	if f.PatientID != nil && v.PatientID != *f.PatientID {
		return false
	}
	if f.DoctorID != nil && (v.DoctorID == nil || *v.DoctorID != *f.DoctorID) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if v.Status == s {
			return true
		}
	}
	return false
}

type RegisterVisitRequest struct {
	PatientID   uuid.UUID `json:"patient_id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	IsEmergency bool      `json:"is_emergency"`
}

type RegisterPatientRequest struct {
	Patient  NewPatient `json:"patient"`
	DoctorID uuid.UUID  `json:"doctor_id"`
}

type RegisterEmergencyRequest struct {
	Name     string    `json:"name"`
	DoctorID uuid.UUID `json:"doctor_id"`
}

// AdvanceRequest carries whatever the current station submits. Only the
// fields relevant to the visit's status are read.
type AdvanceRequest struct {
	DoctorID      *uuid.UUID          `json:"doctor_id,omitempty"`
	MedicalRecord *MedicalRecordInput `json:"medical_record,omitempty"`
	Prescription  []PrescriptionLine  `json:"prescription,omitempty" validate:"omitempty,dive"`
}

// Registration bundles a created visit with its patient.
type Registration struct {
	Visit   *Visit   `json:"visit"`
	Patient *Patient `json:"patient"`
}
