package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	traceIDField = "traceId"
	jobField     = "job"
)

// InjectTraceID attaches a logger carrying a fresh traceId to ctx.
func InjectTraceID(ctx context.Context) context.Context {
	return inject(ctx, nil)
}

// InjectJob tags the logger with the scheduled job name as well. Every run of
// a job gets its own traceId.
func InjectJob(ctx context.Context, job string) context.Context {
	return inject(ctx, map[string]any{jobField: job})
}

func inject(ctx context.Context, fields map[string]any) context.Context {
	lc := log.With().Str(traceIDField, newTraceID())
	if len(fields) > 0 {
		lc = lc.Fields(fields)
	}
	logger := lc.Logger()
	return logger.WithContext(ctx)
}

// newTraceID prefers time-ordered ids so traces sort like outbox events.
func newTraceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
