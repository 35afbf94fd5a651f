// Package cmdlog wraps CLI command actions with logging and metrics.
package cmdlog

import (
	"time"

	"rugguard/internal/logging"
	"rugguard/internal/metrics"
)

// Run executes f as the named command, counting it and logging how it ended.
func Run(cmd string, f func() error) error {
	metrics.CommandRuns.WithLabelValues(cmd).Inc()
	start := time.Now()
	err := f()
	fields := map[string]any{"command": cmd, "elapsed_ms": time.Since(start).Milliseconds()}
	if err != nil {
		metrics.CommandErrors.WithLabelValues(cmd).Inc()
		fields["error"] = err.Error()
		logging.Error("command_failed", fields)
	} else {
		logging.Info("command_done", fields)
	}
	return err
}
