package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
)

func TestWithinTxRollsBackEveryWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	med := &model.Medicine{Name: "Paracetamol 500mg", Price: 2000, Stock: 10}
	require.NoError(t, store.Medicines().Create(ctx, med))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		require.NoError(t, uow.Medicines().DecrementStock(ctx, med.ID, 4))
		require.NoError(t, uow.Visits().Create(ctx, &model.Visit{Date: "2026-03-02", QueueNumber: "A-001", Status: model.VisitStatusWaiting}))
		require.NoError(t, uow.Outbox().Create(ctx, &model.OutboxEvent{EventType: "visit.created", Payload: []byte(`{}`)}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Medicines().Get(ctx, med.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)

	visits, err := store.Visits().List(ctx, model.VisitFilter{})
	require.NoError(t, err)
	assert.Empty(t, visits)

	pending, err := store.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	med := &model.Medicine{Name: "Amoxicillin 500mg", Price: 12000, Stock: 3}
	require.NoError(t, store.Medicines().Create(ctx, med))

	require.NoError(t, store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		return uow.Medicines().DecrementStock(ctx, med.ID, 3)
	}))

	got, err := store.Medicines().Get(ctx, med.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestDecrementStock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	med := &model.Medicine{Name: "Salbutamol 2mg", Price: 1500, Stock: 2}
	require.NoError(t, store.Medicines().Create(ctx, med))

	err := store.Medicines().DecrementStock(ctx, med.ID, 3)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	got, err := store.Medicines().Get(ctx, med.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)

	assert.ErrorIs(t, store.Medicines().DecrementStock(ctx, uuid.New(), 1), repository.ErrNotFound)
}

func TestNextQueueNumberPerSeries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	for _, v := range []*model.Visit{
		{Date: "2026-03-02", QueueNumber: "A-001"},
		{Date: "2026-03-02", QueueNumber: "A-007"},
		{Date: "2026-03-02", QueueNumber: "E-002", IsEmergency: true},
		{Date: "2026-03-01", QueueNumber: "A-015"},
	} {
		require.NoError(t, store.Visits().Create(ctx, v))
	}

	n, err := store.Visits().NextQueueNumber(ctx, "2026-03-02", false)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = store.Visits().NextQueueNumber(ctx, "2026-03-02", false)
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	n, err = store.Visits().NextQueueNumber(ctx, "2026-03-02", true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = store.Visits().NextQueueNumber(ctx, "2026-03-03", false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNextQueueNumberSurvivesDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	var last *model.Visit
	for i := 0; i < 2; i++ {
		n, err := store.Visits().NextQueueNumber(ctx, "2026-03-02", false)
		require.NoError(t, err)
		assert.Equal(t, i+1, n)
		last = &model.Visit{Date: "2026-03-02", QueueNumber: fmt.Sprintf("A-%03d", n)}
		require.NoError(t, store.Visits().Create(ctx, last))
	}
	require.NoError(t, store.Visits().Delete(ctx, last.ID))

	n, err := store.Visits().NextQueueNumber(ctx, "2026-03-02", false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestNextQueueNumberRollsBackWithTx(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		n, err := uow.Visits().NextQueueNumber(ctx, "2026-03-02", true)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := store.Visits().NextQueueNumber(ctx, "2026-03-02", true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListReturnsCopiesInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	first := &model.Visit{Date: "2026-03-02", QueueNumber: "A-001", Status: model.VisitStatusWaiting}
	second := &model.Visit{Date: "2026-03-02", QueueNumber: "A-002", Status: model.VisitStatusWaiting}
	require.NoError(t, store.Visits().Create(ctx, first))
	require.NoError(t, store.Visits().Create(ctx, second))

	visits, err := store.Visits().List(ctx, model.VisitFilter{Date: "2026-03-02"})
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "A-001", visits[0].QueueNumber)
	assert.Equal(t, "A-002", visits[1].QueueNumber)

	visits[0].Status = model.VisitStatusDone
	got, err := store.Visits().Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusWaiting, got.Status)
}
