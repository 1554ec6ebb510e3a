package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/persimmon-labs/uxagent-cli/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (*syncBuffer) Sync() error { return nil }

func initTestLogger(t *testing.T, cfg config.LoggerConfig) *syncBuffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncBuffer{}
	Initialize(cfg, zapcore.Lock(buf))
	return buf
}

func TestInitializeJSONFormat(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{Level: "info", Format: "json", ServiceName: "uxagent"})

	GetLogger().Info("session started")
	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, `"msg":"session started"`)
	assert.Contains(t, out, "uxagent")
}

func TestInitializeRespectsLevel(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{Level: "warn", Format: "json", ServiceName: "uxagent"})

	logger := GetLogger()
	logger.Info("too quiet to appear")
	logger.Warn("this one lands")

	out := buf.String()
	assert.NotContains(t, out, "too quiet to appear")
	assert.Contains(t, out, "this one lands")
}

func TestInitializeBadLevelFallsBackToInfo(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{Level: "shouting", Format: "json", ServiceName: "uxagent"})

	logger := GetLogger()
	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestInitializeRunsOnce(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"})

	// A second initialization attempt is ignored.
	second := &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "second"}, zapcore.Lock(second))

	GetLogger().Info("routed to the first writer")
	assert.Contains(t, buf.String(), "routed to the first writer")
	assert.Empty(t, second.String())
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	assert.Equal(t, "fallback", logger.Name())
}

func TestConsoleEncoderColorsLevels(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "uxagent"})

	GetLogger().Warn("watch out")
	assert.Contains(t, buf.String(), ansiYellow)
}
