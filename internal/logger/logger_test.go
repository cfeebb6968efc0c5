package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/address-predictor/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		wantLevel zapcore.Level
	}{
		{name: "json info", cfg: config.LogConfig{Level: "info", Format: "json"}, wantLevel: zapcore.InfoLevel},
		{name: "console debug", cfg: config.LogConfig{Level: "debug", Format: "console"}, wantLevel: zapcore.DebugLevel},
		{name: "invalid level defaults to info", cfg: config.LogConfig{Level: "invalid", Format: "json"}, wantLevel: zapcore.InfoLevel},
		{name: "warn", cfg: config.LogConfig{Level: "warn", Format: "console"}, wantLevel: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewLogger(&tt.cfg)

			assert.NoError(t, err)
			assert.NotNil(t, log)
			assert.True(t, log.Core().Enabled(tt.wantLevel))
			assert.False(t, log.Core().Enabled(tt.wantLevel-1))
		})
	}
}
