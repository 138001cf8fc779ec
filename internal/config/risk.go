package config

import (
	"fmt"

	"github.com/viddhana/pool-ledger/internal/types"
)

type RiskConfig struct {
	// WindowMode selects how the daily withdrawal window rolls over: "calendar"
	// resets at UTC midnight, "rolling" resets 24h after the window opened.
	WindowMode string `mapstructure:"window-mode"`
}

func (cfg *RiskConfig) Validate() error {
	if cfg.WindowMode == "" {
		cfg.WindowMode = string(types.WindowModeCalendar)
	}
	if _, err := types.WithdrawalWindowModeFromString(cfg.WindowMode); err != nil {
		return fmt.Errorf("invalid window-mode: %w", err)
	}
	return nil
}

func (cfg *RiskConfig) Mode() types.WithdrawalWindowMode {
	mode, err := types.WithdrawalWindowModeFromString(cfg.WindowMode)
	if err != nil {
		return types.WindowModeCalendar
	}
	return mode
}
