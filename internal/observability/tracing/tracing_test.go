package tracing

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestInjectJob(t *testing.T) {
	buf := captureLogs(t)

	ctx := InjectJob(t.Context(), "auto_sweep")
	log.Ctx(ctx).Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "auto_sweep", line[jobField])
	assert.NotEmpty(t, line[traceIDField])
}

func TestTraceIDsDiffer(t *testing.T) {
	buf := captureLogs(t)

	log.Ctx(InjectTraceID(t.Context())).Info().Msg("a")
	first := buf.String()
	buf.Reset()
	log.Ctx(InjectTraceID(t.Context())).Info().Msg("a")

	assert.NotEqual(t, first, buf.String())
}
