package model

import (
	"time"

	"github.com/google/uuid"
)

type PrescriptionStatus string

const (
	PrescriptionStatusPending   PrescriptionStatus = "pending"
	PrescriptionStatusProcessed PrescriptionStatus = "processed"
	PrescriptionStatusCompleted PrescriptionStatus = "completed"
)

type Prescription struct {
	ID        uuid.UUID          `json:"id"`
	Items     []PrescriptionItem `json:"items"`
	Status    PrescriptionStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

// PrescriptionItem snapshots the catalog name and price at prescribing time.
type PrescriptionItem struct {
	MedicineID   uuid.UUID `json:"medicine_id"`
	MedicineName string    `json:"medicine_name"`
	Dosage       string    `json:"dosage"`
	Quantity     int       `json:"quantity"`
	UnitPrice    int64     `json:"unit_price"`
}

func (i PrescriptionItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

type PrescriptionLine struct {
	MedicineID uuid.UUID `json:"medicine_id"`
	Dosage     string    `json:"dosage" validate:"notblank"`
	Quantity   int       `json:"quantity" validate:"gt=0"`
}
