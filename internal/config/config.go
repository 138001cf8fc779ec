package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Db       DbConfig       `mapstructure:"db"`
	Pool     PoolConfig     `mapstructure:"pool"`
	Rewards  RewardsConfig  `mapstructure:"rewards"`
	Payout   PayoutConfig   `mapstructure:"payout"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Queue    *QueueConfig   `mapstructure:"queue"`
	Transfer TransferConfig `mapstructure:"transfer"`
	Access   AccessConfig   `mapstructure:"access"`
	BTC      BTCConfig      `mapstructure:"btc"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Db.Validate(); err != nil {
		return err
	}

	if err := cfg.Pool.Validate(); err != nil {
		return err
	}

	if err := cfg.Rewards.Validate(); err != nil {
		return err
	}

	if err := cfg.Payout.Validate(); err != nil {
		return err
	}

	if err := cfg.Risk.Validate(); err != nil {
		return err
	}

	if err := cfg.Poller.Validate(); err != nil {
		return err
	}

	// queue is optional, without it outbox events are kept in the store only
	if cfg.Queue != nil {
		if err := cfg.Queue.Validate(); err != nil {
			return err
		}
	}

	if err := cfg.Transfer.Validate(); err != nil {
		return err
	}

	if err := cfg.Access.Validate(); err != nil {
		return err
	}

	if err := cfg.BTC.Validate(); err != nil {
		return err
	}

	if err := cfg.Metrics.Validate(); err != nil {
		return err
	}

	return nil
}

// New returns a fully parsed Config object from a given file path.
// Every key can be overridden from the environment, nested keys use "__" as
// separator (e.g. DB__ADDRESS).
func New(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
