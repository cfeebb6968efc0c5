package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTiming(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	stop := Timing(log, "predict", zap.Int("chars", 12))
	stop()

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "predict time", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(12), fields["chars"])
	assert.Contains(t, fields, "took")
}

func TestTimingDisabled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	Timing(zap.New(core), "predict")()
	Timing(nil, "predict")()

	assert.Zero(t, logs.Len())
}
