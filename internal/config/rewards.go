package config

import "errors"

// seconds in a 365 day year
const defaultUnitsPerYear = 365 * 24 * 60 * 60

type RewardsConfig struct {
	// UnitsPerYear is the number of reward-rate time units in a year. Rates are
	// expressed per second so this is the number of seconds in a year.
	UnitsPerYear int64 `mapstructure:"units-per-year"`
}

func (cfg *RewardsConfig) Validate() error {
	if cfg.UnitsPerYear == 0 {
		cfg.UnitsPerYear = defaultUnitsPerYear
	}
	if cfg.UnitsPerYear < 0 {
		return errors.New("units-per-year must be positive")
	}
	return nil
}
