package services

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/viddhana/pool-ledger/internal/access"
	"github.com/viddhana/pool-ledger/internal/config"
	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/db/sqlite"
	"github.com/viddhana/pool-ledger/internal/types"
	"github.com/viddhana/pool-ledger/pkg"
	"github.com/viddhana/pool-ledger/testutil"
	"github.com/viddhana/pool-ledger/tests/mocks"
)

const (
	testAdmin    = "alice"
	testGuard    = "bob"
	testOperator = "carol"
	testPool     = "main"
	testAsset    = "BTC"

	testRecipient = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	testTxHash    = "9f43262433597827f3fd584e5df64f59092ec22a3c13bb54d7cc896d4fbc0c63"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	svc      *Service
	store    *sqlite.Database
	clock    *testutil.ManualClock
	transfer *mocks.TransferInterface
}

func newHarness(t *testing.T, opts ...func(cfg *config.Config)) *harness {
	t.Helper()

	cfg := &config.Config{
		Db: config.DbConfig{Driver: config.DbDriverSqlite},
		Payout: config.PayoutConfig{
			MinPayout: "0.5",
			BaseFee:   "0.0001",
			FeeRate:   "0.001",
		},
		BTC: config.BTCConfig{NetParams: "mainnet"},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	require.NoError(t, cfg.Db.Validate())
	require.NoError(t, cfg.Payout.Validate())
	require.NoError(t, cfg.Rewards.Validate())
	require.NoError(t, cfg.Risk.Validate())
	require.NoError(t, cfg.Poller.Validate())
	require.NoError(t, cfg.BTC.Validate())

	store, err := sqlite.New("")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	checker := access.NewChecker(&config.AccessConfig{Roles: map[string][]string{
		testAdmin:    {types.RoleAdmin.String()},
		testGuard:    {types.RoleCircuitBreaker.String()},
		testOperator: {types.RoleOperator.String()},
	}})

	clock := testutil.NewManualClock(baseTime)
	transfer := mocks.NewTransferInterface(t)

	svc, err := NewService(cfg, store, clock, checker, transfer, nil)
	require.NoError(t, err)

	return &harness{svc: svc, store: store, clock: clock, transfer: transfer}
}

func (h *harness) createPool(t *testing.T, limits *config.RiskLimits) *model.PoolDocument {
	t.Helper()
	pool, err := h.svc.CreatePool(t.Context(), testAdmin, testPool, testAsset, limits)
	require.NoError(t, err)
	return pool
}

func (h *harness) deposit(t *testing.T, participant, amount string) *DepositResult {
	t.Helper()
	res, err := h.svc.Deposit(t.Context(), testPool, participant, amt(amount), testAsset)
	require.NoError(t, err)
	return res
}

func amt(s string) sdkmath.Int {
	return types.MustParseAmount(s)
}

func ptrAmt(s string) *sdkmath.Int {
	return pkg.Ptr(amt(s))
}

func ptrRate(s string) *sdkmath.LegacyDec {
	return pkg.Ptr(sdkmath.LegacyMustNewDecFromStr(s))
}

func requireReason(t *testing.T, err error, reason types.Reason) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, reason, types.ReasonOf(err), "unexpected error: %v", err)
}

func requireCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, types.CodeOf(err), "unexpected error: %v", err)
}

// withinUnits asserts |got - want| <= tolerance, all in whole asset units.
func withinUnits(t *testing.T, want string, got sdkmath.Int, tolerance string) {
	t.Helper()
	diff := got.Sub(amt(want)).Abs()
	require.True(t, diff.LTE(amt(tolerance)), "got %s, want %s ± %s", types.FormatAmount(got), want, tolerance)
}
