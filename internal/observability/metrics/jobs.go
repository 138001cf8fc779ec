package metrics

import (
	"context"
	"time"
)

// JobFunc is the shape of every scheduled job and the outbox relay.
type JobFunc func(ctx context.Context) error

// TimeJob records the duration and outcome of each run of job, and the unix
// time of its last successful run.
func TimeJob(job string, run JobFunc) JobFunc {
	return func(ctx context.Context) error {
		started := time.Now()
		err := run(ctx)

		outcome := Success
		if err != nil {
			outcome = Error
		} else {
			jobLastSuccessGauge.WithLabelValues(job).Set(float64(time.Now().Unix()))
		}
		jobDurationHistogram.WithLabelValues(job, outcome.String()).Observe(time.Since(started).Seconds())

		return err
	}
}
