package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// VisitEvent is the payload of every visit.* event.
type VisitEvent struct {
	VisitID     uuid.UUID   `json:"visit_id"`
	QueueNumber string      `json:"queue_number"`
	From        VisitStatus `json:"from,omitempty"`
	To          VisitStatus `json:"to,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
	// RequestID is the X-Request-ID of the call that caused the change.
	RequestID string `json:"request_id,omitempty"`
}
