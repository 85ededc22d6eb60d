package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/requestid"
)

const (
	TypeCancelled = "visit.cancelled"
	typePrefix    = "visit."
)

// Service records visit lifecycle events in the outbox and exposes the
// relayed stream to subscribers.
type Service struct {
	broker  messaging.Broker
	channel string
	now     func() time.Time
}

func NewService(broker messaging.Broker, channel string) *Service {
	return &Service{broker: broker, channel: channel, now: time.Now}
}

// VisitChanged writes a visit.<status> event through outbox, which must be
// bound to the transaction that performed the change.
func (s *Service) VisitChanged(ctx context.Context, outbox repository.OutboxRepository, visit *model.Visit, from model.VisitStatus) error {
	return s.emit(ctx, outbox, typePrefix+string(visit.Status), model.VisitEvent{
		VisitID:     visit.ID,
		QueueNumber: visit.QueueNumber,
		From:        from,
		To:          visit.Status,
		OccurredAt:  s.now(),
		RequestID:   requestid.From(ctx),
	})
}

func (s *Service) VisitCancelled(ctx context.Context, outbox repository.OutboxRepository, visit *model.Visit) error {
	return s.emit(ctx, outbox, TypeCancelled, model.VisitEvent{
		VisitID:     visit.ID,
		QueueNumber: visit.QueueNumber,
		From:        visit.Status,
		OccurredAt:  s.now(),
		RequestID:   requestid.From(ctx),
	})
}

func (s *Service) emit(ctx context.Context, outbox repository.OutboxRepository, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
	}
	if err := outbox.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// Subscribe streams relayed messages until ctx ends.
func (s *Service) Subscribe(ctx context.Context) (<-chan []byte, error) {
	return s.broker.Subscribe(ctx, s.channel)
}
