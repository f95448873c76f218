package logging

import (
	"context"
	"time"
)

// Hit logs a cache hit.
func Hit(ctx context.Context, logger *Logger, operation, fingerprint string) {
	logger.Debug(ctx, "cache hit", "operation", operation, "fingerprint", fingerprint, "result", "hit")
}

// Miss logs a cache miss along with why it missed.
func Miss(ctx context.Context, logger *Logger, operation, fingerprint, reason string) {
	logger.Debug(ctx, "cache miss", "operation", operation, "fingerprint", fingerprint, "reason", reason, "result", "miss")
}

// Eviction logs a single entry being evicted.
func Eviction(ctx context.Context, logger *Logger, fingerprint string, size int64, reason string) {
	logger.Info(ctx, "cache entry evicted", "fingerprint", fingerprint, "size", size, "reason", reason)
}

// Cleanup logs the result of a garbage-collection sweep.
func Cleanup(ctx context.Context, logger *Logger, pass string, entriesRemoved int, bytesFreed int64, duration time.Duration) {
	logger.Info(ctx, "cache cleanup completed",
		"pass", pass,
		"entries_removed", entriesRemoved,
		"bytes_freed", bytesFreed,
		"duration_ms", duration.Milliseconds(),
	)
}
