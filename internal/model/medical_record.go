package model

import (
	"time"

	"github.com/google/uuid"
)

// MedicalRecord is the SOAP note written once when the doctor completes an examination.
type MedicalRecord struct {
	ID         uuid.UUID `json:"id"`
	Complaints string    `json:"complaints"`
	Findings   string    `json:"findings"`
	Diagnosis  string    `json:"diagnosis"`
	RecordedAt time.Time `json:"recorded_at"`
}

type MedicalRecordInput struct {
	Complaints string `json:"complaints" validate:"notblank"`
	Findings   string `json:"findings" validate:"notblank"`
	Diagnosis  string `json:"diagnosis" validate:"notblank"`
}
