package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "zellax.log")
	logger := NewLoggerWithConfig(LogConfig{Level: "warn", File: true, FilePath: path, MaxSize: 1})

	tradeLogger := WithTradeID(logger, "t-1")
	tradeLogger.Info().Msg("dropped")
	opLogger := WithOperation(logger, "trade.close")
	opLogger.Warn().Msg("kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"operation":"trade.close"`)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestContextLogger(t *testing.T) {
	assert.Equal(t, zerolog.Disabled, FromContext(context.Background()).GetLevel())

	logger := NewLoggerWithConfig(LogConfig{Level: "debug"})
	ctx := WithLogger(context.Background(), logger)
	assert.Equal(t, zerolog.DebugLevel, FromContext(ctx).GetLevel())
}
