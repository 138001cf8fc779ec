package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/viddhana/pool-ledger/internal/queue"
	"github.com/viddhana/pool-ledger/internal/types"
	"github.com/viddhana/pool-ledger/tests/mocks"
)

func TestRelayOutboxPublishesInOrder(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	pub := mocks.NewEventPublisher(t)
	h.svc.publisher = pub

	h.createPool(t, nil)
	h.deposit(t, "dave", "1")
	_, err := h.svc.TriggerCircuitBreaker(ctx, testGuard, testPool, "maintenance")
	require.NoError(t, err)

	var published []string
	pub.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			msg := args.Get(1).(queue.Message)
			assert.Equal(t, testPool, msg.PoolID)
			assert.NotEmpty(t, msg.Body)
			published = append(published, msg.Type)
		}).
		Return(nil).Times(3)

	require.NoError(t, h.svc.RelayOutbox(ctx))
	assert.Equal(t, []string{
		types.EventPoolCreated.String(),
		types.EventDeposited.String(),
		types.EventCircuitBreakerTriggered.String(),
	}, published)
	assert.Empty(t, outboxTypes(t, h))

	// nothing left to publish
	require.NoError(t, h.svc.RelayOutbox(ctx))
}

func TestRelayOutboxStopsAtFirstFailure(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	pub := mocks.NewEventPublisher(t)
	h.svc.publisher = pub

	h.createPool(t, nil)
	h.deposit(t, "dave", "1")

	pub.On("Publish", mock.Anything, mock.MatchedBy(func(m queue.Message) bool {
		return m.Type == types.EventPoolCreated.String()
	})).Return(nil).Once()
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(m queue.Message) bool {
		return m.Type == types.EventDeposited.String()
	})).Return(errors.New("channel closed")).Once()

	err := h.svc.RelayOutbox(ctx)
	requireCode(t, err, types.TransientError)
	assert.Equal(t, []types.EventType{types.EventDeposited}, outboxTypes(t, h))
}

func TestRelayOutboxWithoutPublisher(t *testing.T) {
	h := newHarness(t)
	h.createPool(t, nil)

	require.NoError(t, h.svc.RelayOutbox(t.Context()))
	assert.Equal(t, []types.EventType{types.EventPoolCreated}, outboxTypes(t, h))
}
