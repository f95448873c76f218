package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for input, want := range tests {
		got, err := ParseLevel(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseLevel("bogus")
	require.Error(t, err)
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	logger := NewNop()
	ctx := context.Background()
	logger.Debug(ctx, "debug msg")
	logger.Info(ctx, "info msg")
	logger.Warn(ctx, "warn msg")
	logger.Error(ctx, "error msg")

	derived := logger.WithOperation("put").WithFingerprint("sha256:abc").WithSize(10)
	derived.Info(ctx, "derived still safe")
}

func TestNilLoggerDoesNotPanic(t *testing.T) {
	var logger *Logger
	logger.Info(context.Background(), "should be a no-op")
	require.Nil(t, logger.With("a", 1))
}

func TestNewProducesUsableLogger(t *testing.T) {
	logger := New(DefaultConfig())
	require.NotNil(t, logger)
	logger.Info(context.Background(), "hello", "key", "value")
}
