package config

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/viddhana/pool-ledger/internal/types"
)

const (
	defaultMaxBatchSize     = 50
	defaultBatchConcurrency = 4
	defaultRetryWindow      = 24 * time.Hour
	defaultMaxSweepRetries  = 3
	defaultSweepPageSize    = 100
)

// PayoutConfig holds the fee schedule and processing limits of the payout
// processor. Amounts are decimal strings in whole asset units, rates are
// decimal fractions (0.001 == 0.1%).
type PayoutConfig struct {
	MinPayout  string `mapstructure:"min-payout"`
	BaseFee    string `mapstructure:"base-fee"`
	FeeRate    string `mapstructure:"fee-rate"`
	FeeCapRate string `mapstructure:"fee-cap-rate"`

	MaxBatchSize     int           `mapstructure:"max-batch-size"`
	BatchConcurrency int           `mapstructure:"batch-concurrency"`
	RetryWindow      time.Duration `mapstructure:"retry-window"`
	MaxSweepRetries  int           `mapstructure:"max-sweep-retries"`
	SweepPageSize    int64         `mapstructure:"sweep-page-size"`
}

// FeeSchedule is the parsed form of the fee related settings.
type FeeSchedule struct {
	MinPayout  sdkmath.Int
	BaseFee    sdkmath.Int
	FeeRate    sdkmath.LegacyDec
	FeeCapRate sdkmath.LegacyDec
}

func (cfg *PayoutConfig) Validate() error {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultMaxBatchSize
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = defaultBatchConcurrency
	}
	if cfg.RetryWindow <= 0 {
		cfg.RetryWindow = defaultRetryWindow
	}
	if cfg.MaxSweepRetries <= 0 {
		cfg.MaxSweepRetries = defaultMaxSweepRetries
	}
	if cfg.SweepPageSize <= 0 {
		cfg.SweepPageSize = defaultSweepPageSize
	}

	_, err := cfg.Fees()
	return err
}

// Fees parses the fee schedule. Missing values are treated as zero.
func (cfg *PayoutConfig) Fees() (*FeeSchedule, error) {
	minPayout, err := parseOptionalAmount(cfg.MinPayout)
	if err != nil {
		return nil, fmt.Errorf("invalid min-payout: %w", err)
	}

	baseFee, err := parseOptionalAmount(cfg.BaseFee)
	if err != nil {
		return nil, fmt.Errorf("invalid base-fee: %w", err)
	}

	feeRate, err := parseOptionalRate(cfg.FeeRate)
	if err != nil {
		return nil, fmt.Errorf("invalid fee-rate: %w", err)
	}

	feeCapRate, err := parseOptionalRate(cfg.FeeCapRate)
	if err != nil {
		return nil, fmt.Errorf("invalid fee-cap-rate: %w", err)
	}
	// a zero cap would swallow every payout, so it means "no cap"
	if feeCapRate.IsZero() {
		feeCapRate = sdkmath.LegacyOneDec()
	}
	if feeRate.GT(sdkmath.LegacyOneDec()) || feeCapRate.GT(sdkmath.LegacyOneDec()) {
		return nil, errors.New("fee rates must not exceed 1")
	}

	return &FeeSchedule{
		MinPayout:  minPayout,
		BaseFee:    baseFee,
		FeeRate:    feeRate,
		FeeCapRate: feeCapRate,
	}, nil
}

func parseOptionalAmount(s string) (sdkmath.Int, error) {
	if s == "" {
		return sdkmath.ZeroInt(), nil
	}
	return types.ParseAmount(s)
}

func parseOptionalRate(s string) (sdkmath.LegacyDec, error) {
	if s == "" {
		return sdkmath.LegacyZeroDec(), nil
	}
	return types.ParseRate(s)
}
