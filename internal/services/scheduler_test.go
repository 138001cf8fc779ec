package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/viddhana/pool-ledger/internal/config"
	"github.com/viddhana/pool-ledger/tests/mocks"
)

func TestSchedulerRelaysOutbox(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Poller.OutboxPollingInterval = 10 * time.Millisecond
	})
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pub := mocks.NewEventPublisher(t)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	h.svc.publisher = pub
	h.createPool(t, nil)

	s := NewScheduler(h.svc)
	require.NoError(t, s.Start(t.Context()))

	assert.Eventually(t, func() bool {
		events, err := h.store.FindUnpublishedEvents(t.Context(), 10)
		return err == nil && len(events) == 0
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	h := newHarness(t)
	h.svc.cfg.Poller.SweepCron = "every tuesday"

	s := NewScheduler(h.svc)
	require.Error(t, s.Start(t.Context()))
}
