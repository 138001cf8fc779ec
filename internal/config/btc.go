package config

import (
	"fmt"

	"github.com/viddhana/pool-ledger/internal/utils"
)

const defaultNetParams = "mainnet"

// BTCConfig selects the network payout recipients are validated against.
type BTCConfig struct {
	NetParams string `mapstructure:"netparams"`
}

func (cfg *BTCConfig) Validate() error {
	if cfg.NetParams == "" {
		cfg.NetParams = defaultNetParams
	}

	if _, err := utils.GetBTCParams(cfg.NetParams); err != nil {
		return fmt.Errorf("invalid net params: %w", err)
	}

	return nil
}
