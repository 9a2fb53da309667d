package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mj1618/desktop-narrator/internal/config"
)

func TestNew_WritesISO8601JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narrator.log")
	logger, err := New(config.LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("replay finished", zap.Int("steps", 3))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1, "debug is below the configured level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "replay finished", entry["msg"])
	assert.Equal(t, "narrator", entry["logger"])
	assert.EqualValues(t, 3, entry["steps"])
	ts, ok := entry["time"].(string)
	require.True(t, ok)
	assert.Contains(t, ts, "T", "ISO8601 timestamp")
}

func TestNew_Development(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "debug", Development: true, File: filepath.Join(t.TempDir(), "dev.log")})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "chatty"})
	assert.Error(t, err)
	assert.NotNil(t, Must(config.LoggingConfig{Level: "chatty"}))
}
