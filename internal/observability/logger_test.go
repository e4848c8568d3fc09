// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evomap/remedy-cli/internal/config"
)

// setupTestLogger initializes the global logger to write to a buffer.
func setupTestLogger(cfg config.LoggerConfig) *bytes.Buffer {
	buf := new(bytes.Buffer)
	Initialize(cfg, zapcore.AddSync(buf))
	return buf
}

func TestInitializeLogger(t *testing.T) {

	t.Run("should initialize console logger", func(t *testing.T) {
		ResetForTest()
		defer ResetForTest()

		buf := setupTestLogger(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "remedy-test",
		})

		GetLogger().Info("This is a test message.")
		Sync()

		output := buf.String()
		assert.Contains(t, output, "INFO", "Output should contain the log level")
		assert.Contains(t, output, "This is a test message.", "Output should contain the message")
		assert.Contains(t, output, "remedy-test.", "Output should contain the service name")
	})

	t.Run("should initialize json logger", func(t *testing.T) {
		ResetForTest()
		defer ResetForTest()

		buf := setupTestLogger(config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "json-test",
		})

		GetLogger().Warn("This is a JSON message.", zap.String("key", "value"))
		Sync()

		var logEntry map[string]interface{}
		err := json.Unmarshal(buf.Bytes(), &logEntry)
		require.NoError(t, err, "Log output should be valid JSON")

		assert.Equal(t, "WARN", logEntry["level"])
		assert.Equal(t, "json-test", logEntry["logger"])
		assert.Equal(t, "This is a JSON message.", logEntry["msg"])
		assert.Equal(t, "value", logEntry["key"])
	})

	t.Run("should write to a log file if configured", func(t *testing.T) {
		ResetForTest()
		defer ResetForTest()

		logFile := filepath.Join(t.TempDir(), "remedy.log")
		Initialize(config.LoggerConfig{
			Level:   "debug",
			Format:  "json",
			LogFile: logFile,
			MaxSize: 1, // 1 MB
		}, zapcore.AddSync(io.Discard))

		GetLogger().Error("This should go to the file.")
		Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "This should go to the file.")
	})

	t.Run("should only initialize once", func(t *testing.T) {
		ResetForTest()
		defer ResetForTest()

		buf := setupTestLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "first"})

		// A second call must be ignored due to sync.Once.
		setupTestLogger(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "second"})

		GetLogger().Info("after double init")
		Sync()

		assert.Contains(t, buf.String(), "first.")
		assert.NotContains(t, buf.String(), "second.")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		defer ResetForTest()

		buf := setupTestLogger(config.LoggerConfig{Level: "chatty", Format: "json", ServiceName: "lvl"})

		GetLogger().Debug("hidden")
		GetLogger().Info("visible")
		Sync()

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "visible")
	})
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	assert.NotNil(t, GetLogger(), "uninitialized access must return a usable fallback")
}
