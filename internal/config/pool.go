package config

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/viddhana/pool-ledger/internal/types"
)

// PoolConfig holds the defaults used by init-pool. Empty limits mean unlimited.
type PoolConfig struct {
	ID                 string `mapstructure:"id"`
	Asset              string `mapstructure:"asset"`
	MaxTVL             string `mapstructure:"max-tvl"`
	MaxDeposit         string `mapstructure:"max-deposit"`
	MaxDailyWithdrawal string `mapstructure:"max-daily-withdrawal"`
	// BreakerThreshold is the fraction of TVL a single withdrawal may move
	// before the circuit breaker trips.
	BreakerThreshold string `mapstructure:"breaker-threshold"`
}

func (cfg *PoolConfig) Validate() error {
	if cfg.ID == "" && cfg.Asset == "" {
		// no default pool configured
		return nil
	}
	if cfg.ID == "" {
		return errors.New("pool id is required when a pool asset is set")
	}
	if cfg.Asset == "" {
		return errors.New("pool asset is required when a pool id is set")
	}
	_, err := cfg.RiskParameters()
	return err
}

// RiskLimits is the parsed form of the pool risk settings. A nil limit is unlimited.
type RiskLimits struct {
	MaxTVL             *sdkmath.Int
	MaxDeposit         *sdkmath.Int
	MaxDailyWithdrawal *sdkmath.Int
	BreakerThreshold   *sdkmath.LegacyDec
}

func (cfg *PoolConfig) RiskParameters() (*RiskLimits, error) {
	var (
		limits RiskLimits
		err    error
	)
	if limits.MaxTVL, err = optionalLimit(cfg.MaxTVL); err != nil {
		return nil, fmt.Errorf("invalid max-tvl: %w", err)
	}
	if limits.MaxDeposit, err = optionalLimit(cfg.MaxDeposit); err != nil {
		return nil, fmt.Errorf("invalid max-deposit: %w", err)
	}
	if limits.MaxDailyWithdrawal, err = optionalLimit(cfg.MaxDailyWithdrawal); err != nil {
		return nil, fmt.Errorf("invalid max-daily-withdrawal: %w", err)
	}
	if cfg.BreakerThreshold != "" {
		th, err := types.ParseRate(cfg.BreakerThreshold)
		if err != nil {
			return nil, fmt.Errorf("invalid breaker-threshold: %w", err)
		}
		limits.BreakerThreshold = &th
	}
	return &limits, nil
}

func optionalLimit(s string) (*sdkmath.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := types.ParseAmount(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
