package eventlog_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/shopfront/internal/eventlog"
	"github.com/koopa0/shopfront/internal/testutils"
	"github.com/koopa0/shopfront/pkg/apperr"
)

func TestAppendAndLoad_RoundTripsInOrder(t *testing.T) {
	env := testutils.SetupTestEnvironment(t)
	log := eventlog.New(env.PostgresPool)
	ctx := context.Background()
	aggregateID := uuid.NewString()

	err := log.Append(ctx, eventlog.AggregateProduct, aggregateID, 0, []eventlog.NewEvent{
		{EventType: "product.created", Payload: []byte(`{"name":"Widget"}`)},
		{EventType: "product.stock_increased", Payload: []byte(`{"qty":5}`)},
	})
	require.NoError(t, err)

	events, err := log.Load(ctx, aggregateID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Version)
	assert.Equal(t, 2, events[1].Version)
	assert.Equal(t, "product.created", events[0].EventType)
}

func TestAppend_StaleExpectedVersionIsRejected(t *testing.T) {
	env := testutils.SetupTestEnvironment(t)
	log := eventlog.New(env.PostgresPool)
	ctx := context.Background()
	aggregateID := uuid.NewString()

	require.NoError(t, log.Append(ctx, eventlog.AggregateOrder, aggregateID, 0, []eventlog.NewEvent{
		{EventType: "order.created", Payload: []byte(`{}`)},
	}))

	// Another writer already landed version 1; retrying against the same
	// expectedVersion=0 must fail with VERSION_CONFLICT, not silently
	// reuse a version number.
	err := log.Append(ctx, eventlog.AggregateOrder, aggregateID, 0, []eventlog.NewEvent{
		{EventType: "order.shipped", Payload: []byte(`{}`)},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeVersionConflict))

	events, err := log.Load(ctx, aggregateID)
	require.NoError(t, err)
	assert.Len(t, events, 1, "the rejected append must not have partially landed")
}

func TestAppend_ConcurrentWritersOnlyOneWins(t *testing.T) {
	env := testutils.SetupTestEnvironment(t)
	log := eventlog.New(env.PostgresPool)
	ctx := context.Background()
	aggregateID := uuid.NewString()

	require.NoError(t, log.Append(ctx, eventlog.AggregateUser, aggregateID, 0, []eventlog.NewEvent{
		{EventType: "user.registered", Payload: []byte(`{}`)},
	}))

	const writers = 10
	var wg sync.WaitGroup
	var succeeded, conflicted atomic.Int32

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := log.Append(ctx, eventlog.AggregateUser, aggregateID, 1, []eventlog.NewEvent{
				{EventType: "user.login_failed", Payload: []byte(`{}`)},
			})
			if err == nil {
				succeeded.Add(1)
			} else if apperr.Is(err, apperr.CodeVersionConflict) {
				conflicted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(writers-1), conflicted.Load())

	events, err := log.Load(ctx, aggregateID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestAppend_MultiEventBatchIsAtomic(t *testing.T) {
	env := testutils.SetupTestEnvironment(t)
	log := eventlog.New(env.PostgresPool)
	ctx := context.Background()
	aggregateID := uuid.NewString()

	require.NoError(t, log.Append(ctx, eventlog.AggregateOrder, aggregateID, 0, []eventlog.NewEvent{
		{EventType: "order.created", Payload: []byte(`{}`)},
	}))

	// expectedVersion is stale (should be 1), so this two-event batch
	// collides on its first insert and must land none of its events.
	err := log.Append(ctx, eventlog.AggregateOrder, aggregateID, 0, []eventlog.NewEvent{
		{EventType: "order.shipped", Payload: []byte(`{}`)},
		{EventType: "order.completed", Payload: []byte(`{}`)},
	})
	require.Error(t, err)

	events, err := log.Load(ctx, aggregateID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestLoad_UnknownAggregateReturnsEmpty(t *testing.T) {
	env := testutils.SetupTestEnvironment(t)
	log := eventlog.New(env.PostgresPool)

	events, err := log.Load(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, events)
}
