// Package debug holds timing helpers for diagnostic logging.
package debug

import (
	"time"

	"go.uber.org/zap"
)

// Timing logs how long an operation took when the returned func is called.
// Nothing is logged unless the logger has debug enabled.
func Timing(log *zap.Logger, operation string, fields ...zap.Field) func() {
	if log == nil || !log.Core().Enabled(zap.DebugLevel) {
		return func() {}
	}

	start := time.Now()
	return func() {
		log.Debug(operation+" time", append(fields, zap.Duration("took", time.Since(start)))...)
	}
}
