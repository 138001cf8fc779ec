package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viddhana/pool-ledger/internal/config"
	"github.com/viddhana/pool-ledger/internal/types"
)

func outboxTypes(t *testing.T, h *harness) []types.EventType {
	t.Helper()
	events, err := h.store.FindUnpublishedEvents(t.Context(), 1000)
	require.NoError(t, err)
	var out []types.EventType
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestCircuitBreakerRoles(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, nil)
	h.deposit(t, "dave", "10")

	_, err := h.svc.TriggerCircuitBreaker(ctx, testOperator, testPool, "suspicious outflow")
	requireCode(t, err, types.Forbidden)

	_, err = h.svc.TriggerCircuitBreaker(ctx, testGuard, testPool, "")
	requireCode(t, err, types.ValidationError)

	breaker, err := h.svc.TriggerCircuitBreaker(ctx, testGuard, testPool, "suspicious outflow")
	require.NoError(t, err)
	assert.True(t, breaker.Active)
	assert.Equal(t, testGuard, breaker.TriggeredBy)

	// triggering again keeps the original reason
	breaker, err = h.svc.TriggerCircuitBreaker(ctx, testGuard, testPool, "second opinion")
	require.NoError(t, err)
	assert.Equal(t, "suspicious outflow", breaker.Reason)

	_, err = h.svc.Deposit(ctx, testPool, "dave", amt("1"), testAsset)
	requireReason(t, err, types.ReasonCircuitBreakerActive)
	_, err = h.svc.Withdraw(ctx, testPool, "dave", amt("1"))
	requireReason(t, err, types.ReasonCircuitBreakerActive)

	_, err = h.svc.ResetCircuitBreaker(ctx, testGuard, testPool)
	requireCode(t, err, types.Forbidden)

	breaker, err = h.svc.ResetCircuitBreaker(ctx, testAdmin, testPool)
	require.NoError(t, err)
	assert.False(t, breaker.Active)
	assert.Equal(t, testAdmin, breaker.ResetBy)

	h.deposit(t, "dave", "1")
	assert.Contains(t, outboxTypes(t, h), types.EventCircuitBreakerReset)
}

func TestWithdrawalOverThresholdTripsBreaker(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, &config.RiskLimits{BreakerThreshold: ptrRate("0.5")})
	h.deposit(t, "dave", "300")
	h.deposit(t, "erin", "100")

	_, err := h.svc.Withdraw(ctx, testPool, "dave", amt("250"))
	requireReason(t, err, types.ReasonCircuitBreakerActive)

	// the withdrawal itself is rolled back
	bal, err := h.svc.GetBalance(ctx, testPool, "dave")
	require.NoError(t, err)
	assert.Equal(t, amt("300"), bal.Shares)
	pool, err := h.svc.GetPool(ctx, testPool)
	require.NoError(t, err)
	assert.Equal(t, amt("400"), pool.TVL)

	// but the trip is persisted
	status, err := h.svc.GetRiskStatus(ctx, testPool)
	require.NoError(t, err)
	assert.True(t, status.CircuitBreaker.Active)
	assert.Equal(t, systemActor, status.CircuitBreaker.TriggeredBy)
	assert.Contains(t, outboxTypes(t, h), types.EventCircuitBreakerTriggered)

	_, err = h.svc.Withdraw(ctx, testPool, "erin", amt("1"))
	requireReason(t, err, types.ReasonCircuitBreakerActive)
}

func TestWithdrawalWithinThreshold(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, &config.RiskLimits{BreakerThreshold: ptrRate("0.5")})
	h.deposit(t, "dave", "300")
	h.deposit(t, "erin", "100")

	_, err := h.svc.Withdraw(ctx, testPool, "dave", amt("200"))
	require.NoError(t, err)

	status, err := h.svc.GetRiskStatus(ctx, testPool)
	require.NoError(t, err)
	assert.False(t, status.CircuitBreaker.Active)
}

func TestDailyWithdrawalCap(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, &config.RiskLimits{MaxDailyWithdrawal: ptrAmt("100")})
	h.deposit(t, "dave", "500")

	_, err := h.svc.Withdraw(ctx, testPool, "dave", amt("150"))
	requireReason(t, err, types.ReasonDailyLimitExceeded)

	require.NoError(t, h.svc.CheckWithdrawal(ctx, testPool, amt("100")))
	err = h.svc.CheckWithdrawal(ctx, testPool, amt("100.5"))
	requireReason(t, err, types.ReasonDailyLimitExceeded)

	status, err := h.svc.GetRiskStatus(ctx, testPool)
	require.NoError(t, err)
	require.NotNil(t, status.DailyRemaining)
	assert.Equal(t, amt("100"), *status.DailyRemaining)
}

func TestUpdateRiskParameters(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, nil)

	_, err := h.svc.UpdateRiskParameters(ctx, testGuard, testPool, &config.RiskLimits{})
	requireCode(t, err, types.Forbidden)

	_, err = h.svc.UpdateRiskParameters(ctx, testAdmin, testPool, &config.RiskLimits{BreakerThreshold: ptrRate("1.5")})
	requireReason(t, err, types.ReasonInvalidRate)

	params, err := h.svc.UpdateRiskParameters(ctx, testAdmin, testPool, &config.RiskLimits{MaxTVL: ptrAmt("10")})
	require.NoError(t, err)
	require.NotNil(t, params.MaxTVL)
	assert.Equal(t, amt("10"), *params.MaxTVL)

	_, err = h.svc.Deposit(ctx, testPool, "dave", amt("11"), testAsset)
	requireReason(t, err, types.ReasonTVLCapExceeded)
}

func TestDailyWindowRollsOver(t *testing.T) {
	for _, mode := range []types.WithdrawalWindowMode{types.WindowModeCalendar, types.WindowModeRolling} {
		t.Run(mode.String(), func(t *testing.T) {
			h := newHarness(t, func(cfg *config.Config) {
				cfg.Risk.WindowMode = mode.String()
			})
			h.createPool(t, nil)

			dw, err := h.svc.dailyWithdrawal(t.Context(), testPool, h.clock.Now())
			require.NoError(t, err)
			assert.True(t, mode.OpenWindow(baseTime).Equal(dw.WindowStart))

			dw.Total = amt("5")
			require.NoError(t, h.store.SaveDailyWithdrawal(t.Context(), dw))

			h.clock.Advance(24 * time.Hour)
			dw, err = h.svc.dailyWithdrawal(t.Context(), testPool, h.clock.Now())
			require.NoError(t, err)
			assert.True(t, dw.Total.IsZero())
			assert.True(t, mode.OpenWindow(h.clock.Now()).Equal(dw.WindowStart))
		})
	}
}
