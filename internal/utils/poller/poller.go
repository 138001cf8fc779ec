package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Poller runs a function on a fixed interval. The first run happens right
// away so pending work is drained on startup.
type Poller struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error

	quit     chan struct{}
	stopOnce sync.Once
}

func NewPoller(name string, interval time.Duration, run func(ctx context.Context) error) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		run:      run,
		quit:     make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	logger := log.With().Str("poller", p.name).Logger()
	logger.Info().Dur("interval", p.interval).Msg("poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failures := 0
	tick := func() {
		if err := p.run(ctx); err != nil {
			failures++
			logger.Error().Err(err).Int("consecutive_failures", failures).Msg("poll failed")
			return
		}
		if failures > 0 {
			logger.Info().Int("after_failures", failures).Msg("poll recovered")
		}
		failures = 0
	}

	tick()
	for {
		select {
		case <-ticker.C:
			tick()
		case <-ctx.Done():
			logger.Info().Msg("poller stopped, context cancelled")
			return
		case <-p.quit:
			logger.Info().Msg("poller stopped")
			return
		}
	}
}

// Stop may be called more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.quit) })
}
