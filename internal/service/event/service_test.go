package event

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/pkg/messaging/local"
	"github.com/jwalitptl/clinic-api/pkg/requestid"
)

func TestVisitEventsCarryRequestID(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(local.NewBroker(), "clinic.visits")
	visit := &model.Visit{ID: uuid.New(), QueueNumber: "A-004", Status: model.VisitStatusExamining}

	ctx := requestid.With(context.Background(), "req-7")
	require.NoError(t, svc.VisitChanged(ctx, store.Outbox(), visit, model.VisitStatusWaiting))
	require.NoError(t, svc.VisitCancelled(context.Background(), store.Outbox(), visit))

	events, err := store.Outbox().GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "visit.examining", events[0].EventType)
	assert.Equal(t, TypeCancelled, events[1].EventType)

	var changed, cancelled model.VisitEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &changed))
	require.NoError(t, json.Unmarshal(events[1].Payload, &cancelled))
	assert.Equal(t, "req-7", changed.RequestID)
	assert.Equal(t, model.VisitStatusWaiting, changed.From)
	assert.Equal(t, "A-004", changed.QueueNumber)
	assert.Empty(t, cancelled.RequestID)
}
