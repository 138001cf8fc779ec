package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	defaultTransferTimeout       = 30 * time.Second
	defaultTransferMaxRetryTimes = 3
	defaultTransferRetryInterval = 500 * time.Millisecond
)

// TransferConfig configures the outbound transfer gateway. The gateway owns the
// settlement network; this service only submits transfers and reads back a
// reference.
type TransferConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// MaxRetryTimes bounds the attempts made for a transfer the gateway
	// reported as temporarily unavailable.
	MaxRetryTimes uint          `mapstructure:"max-retry-times"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
}

func (cfg *TransferConfig) Validate() error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("transfer gateway endpoint is required")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid transfer gateway endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("transfer gateway endpoint must be http(s), got %q", u.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTransferTimeout
	}
	if cfg.MaxRetryTimes == 0 {
		cfg.MaxRetryTimes = defaultTransferMaxRetryTimes
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultTransferRetryInterval
	}
	return nil
}
