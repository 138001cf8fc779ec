package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerConfig_Validate(t *testing.T) {
	t.Run("all fields set", func(t *testing.T) {
		cfg := &PollerConfig{
			SweepCron:             "*/2 * * * *",
			RetrySweepCron:        "@every 1m",
			SnapshotCron:          "@daily",
			StuckCheckCron:        "@every 30s",
			OutboxPollingInterval: 3 * time.Second,
			OutboxBatchLimit:      10,
			StuckPayoutAlertAfter: time.Hour,
		}
		err := cfg.Validate()
		require.NoError(t, err)
		assert.Equal(t, "*/2 * * * *", cfg.SweepCron)
		assert.Equal(t, time.Hour, cfg.StuckPayoutAlertAfter)
	})

	t.Run("nothing set - should use defaults", func(t *testing.T) {
		cfg := &PollerConfig{}
		err := cfg.Validate()
		require.NoError(t, err)
		assert.Equal(t, defaultSweepCron, cfg.SweepCron)
		assert.Equal(t, defaultRetrySweepCron, cfg.RetrySweepCron)
		assert.Equal(t, defaultSnapshotCron, cfg.SnapshotCron)
		assert.Equal(t, defaultOutboxPollingInterval, cfg.OutboxPollingInterval)
		assert.EqualValues(t, defaultOutboxBatchLimit, cfg.OutboxBatchLimit)
		assert.Equal(t, defaultStuckPayoutAlertAfter, cfg.StuckPayoutAlertAfter)
	})

	t.Run("negative outbox interval - should use default", func(t *testing.T) {
		cfg := &PollerConfig{OutboxPollingInterval: -1 * time.Minute}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, defaultOutboxPollingInterval, cfg.OutboxPollingInterval)
	})

	t.Run("invalid cron spec - should error", func(t *testing.T) {
		cfg := &PollerConfig{SweepCron: "every five minutes"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid sweep-cron")
	})

	t.Run("negative batch limit - should error", func(t *testing.T) {
		cfg := &PollerConfig{OutboxBatchLimit: -5}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outbox-batch-limit must be positive")
	})
}
