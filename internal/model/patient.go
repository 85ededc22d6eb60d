package model

import (
	"time"

	"github.com/google/uuid"
)

type PatientType string

const (
	PatientTypeGeneral PatientType = "Umum"
	PatientTypeBPJS    PatientType = "BPJS"
)

type Patient struct {
	ID              uuid.UUID   `db:"id" json:"id"`
	Name            string      `db:"name" json:"name"`
	NIK             string      `db:"nik" json:"nik"`
	BirthDate       string      `db:"birth_date" json:"birth_date"`
	Address         string      `db:"address" json:"address"`
	Phone           string      `db:"phone" json:"phone"`
	Type            PatientType `db:"type" json:"type"`
	InsuranceNumber string      `db:"insurance_number" json:"insurance_number,omitempty"`
	IsPlaceholder   bool        `db:"is_placeholder" json:"is_placeholder"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
}

// NewPatient is the reception registration form.
type NewPatient struct {
	Name            string      `json:"name" validate:"notblank"`
	NIK             string      `json:"nik" validate:"notblank"`
	BirthDate       string      `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Address         string      `json:"address"`
	Phone           string      `json:"phone"`
	Type            PatientType `json:"type" validate:"omitempty,oneof=Umum BPJS"`
	InsuranceNumber string      `json:"insurance_number" validate:"required_if=Type BPJS"`
}

// PatientHistoryEntry is one past encounter on the doctor's chart.
type PatientHistoryEntry struct {
	VisitID       uuid.UUID      `json:"visit_id"`
	Date          string         `json:"date"`
	Status        VisitStatus    `json:"status"`
	DoctorName    string         `json:"doctor_name"`
	MedicalRecord *MedicalRecord `json:"medical_record,omitempty"`
	Prescription  *Prescription  `json:"prescription,omitempty"`
}
