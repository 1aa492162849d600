package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCategoryHelpersWriteNamedEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetRoot(zap.New(core))
	defer SetRoot(nil)

	CLIDebug("state %s", "parse-global")
	SecretsDebug("stored %d keys", 2)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "cli", entries[0].LoggerName)
	assert.Equal(t, "state parse-global", entries[0].Message)
	assert.Equal(t, "secrets", entries[1].LoggerName)
}

func TestDisabledCategoryIsSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetRoot(zap.New(core))
	defer SetRoot(nil)

	SetCategoryEnabled(CategoryAnalytics, false)
	defer SetCategoryEnabled(CategoryAnalytics, true)

	assert.False(t, IsCategoryEnabled(CategoryAnalytics))
	AnalyticsDebug("should not appear")
	RuntimeDebug("should appear")

	require.Len(t, logs.All(), 1)
	assert.Equal(t, "runtime", logs.All()[0].LoggerName)
}

func TestInitializeLevels(t *testing.T) {
	defer SetRoot(nil)

	quiet, err := Initialize(false)
	require.NoError(t, err)
	assert.False(t, quiet.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, quiet.Core().Enabled(zapcore.WarnLevel))

	verbose, err := Initialize(true)
	require.NoError(t, err)
	assert.True(t, verbose.Core().Enabled(zapcore.DebugLevel))
}
