package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	defaultSweepCron             = "@every 5m"
	defaultRetrySweepCron        = "@every 15m"
	defaultSnapshotCron          = "@hourly"
	defaultStuckCheckCron        = "@every 10m"
	defaultOutboxPollingInterval = 5 * time.Second
	defaultOutboxBatchLimit      = 100
	defaultStuckPayoutAlertAfter = 30 * time.Minute
)

type PollerConfig struct {
	SweepCron             string        `mapstructure:"sweep-cron"`
	RetrySweepCron        string        `mapstructure:"retry-sweep-cron"`
	SnapshotCron          string        `mapstructure:"snapshot-cron"`
	StuckCheckCron        string        `mapstructure:"stuck-check-cron"`
	OutboxPollingInterval time.Duration `mapstructure:"outbox-polling-interval"`
	OutboxBatchLimit      int64         `mapstructure:"outbox-batch-limit"`
	StuckPayoutAlertAfter time.Duration `mapstructure:"stuck-payout-alert-after"`
}

func (cfg *PollerConfig) Validate() error {
	if cfg.SweepCron == "" {
		cfg.SweepCron = defaultSweepCron
	}
	if cfg.RetrySweepCron == "" {
		cfg.RetrySweepCron = defaultRetrySweepCron
	}
	if cfg.SnapshotCron == "" {
		cfg.SnapshotCron = defaultSnapshotCron
	}
	if cfg.StuckCheckCron == "" {
		cfg.StuckCheckCron = defaultStuckCheckCron
	}
	if cfg.OutboxPollingInterval <= 0 {
		cfg.OutboxPollingInterval = defaultOutboxPollingInterval
	}
	if cfg.StuckPayoutAlertAfter <= 0 {
		cfg.StuckPayoutAlertAfter = defaultStuckPayoutAlertAfter
	}

	if cfg.OutboxBatchLimit == 0 {
		cfg.OutboxBatchLimit = defaultOutboxBatchLimit
	}
	if cfg.OutboxBatchLimit < 0 {
		return errors.New("outbox-batch-limit must be positive")
	}

	for name, spec := range map[string]string{
		"sweep-cron":       cfg.SweepCron,
		"retry-sweep-cron": cfg.RetrySweepCron,
		"snapshot-cron":    cfg.SnapshotCron,
		"stuck-check-cron": cfg.StuckCheckCron,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}

	return nil
}
