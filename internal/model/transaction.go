package model

import (
	"time"

	"github.com/google/uuid"
)

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusPaid    TransactionStatus = "paid"
)

type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodNonCash PaymentMethod = "non_cash"
)

type ItemType string

const (
	ItemTypeService  ItemType = "service"
	ItemTypeMedicine ItemType = "medicine"
)

type TransactionItem struct {
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
	UnitPrice int64    `json:"unit_price"`
	Type      ItemType `json:"type"`
}

type Transaction struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	VisitID     uuid.UUID         `db:"visit_id" json:"visit_id"`
	PatientName string            `db:"patient_name" json:"patient_name"`
	Description string            `db:"description" json:"description"`
	Items       []TransactionItem `db:"-" json:"items"`
	Amount      int64             `db:"amount" json:"amount"`
	Status      TransactionStatus `db:"status" json:"status"`
	Method      PaymentMethod     `db:"method" json:"method,omitempty"`
	Tendered    int64             `db:"tendered" json:"tendered,omitempty"`
	Change      int64             `db:"change_due" json:"change,omitempty"`
	PaidAt      *time.Time        `db:"paid_at" json:"paid_at,omitempty"`
	Date        string            `db:"tx_date" json:"date"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}

type TransactionFilter struct {
	Status TransactionStatus
	Date   string
	Search string
}

type PaymentRequest struct {
	Method   PaymentMethod `json:"method" validate:"required,oneof=cash non_cash"`
	Tendered int64         `json:"tendered" validate:"gte=0"`
}

// Bill is the cashier's breakdown of what a visit owes.
type Bill struct {
	VisitID uuid.UUID         `json:"visit_id"`
	Items   []TransactionItem `json:"items"`
	Total   int64             `json:"total"`
}

// Receipt is returned once a payment is confirmed.
type Receipt struct {
	Transaction *Transaction `json:"transaction"`
	Change      int64        `json:"change"`
}
