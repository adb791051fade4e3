package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/trafficcast/cmd/predictor/config"
)

func TestNew(t *testing.T) {
	logger := New(&config.Config{LogFormat: "text", LogLevel: "info"})
	require.NotNil(t, logger)
	logger.Info("test message")
}

func TestNew_LogLevels(t *testing.T) {
	tests := []struct {
		logLevel string
		enabled  slog.Level
		disabled slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"WARN", slog.LevelWarn, slog.LevelInfo},
		{"invalid", slog.LevelInfo, slog.LevelDebug},
		{"", slog.LevelInfo, slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			logger := New(&config.Config{LogFormat: "text", LogLevel: tt.logLevel})
			assert.True(t, logger.Enabled(context.TODO(), tt.enabled))
			assert.False(t, logger.Enabled(context.TODO(), tt.disabled))
		})
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	for _, format := range []string{"json", "JSON", "Json"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&config.Config{LogFormat: format, LogLevel: "info"}, &buf)
			logger.Info("model ready", "model_id", "abc")

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "model ready", entry["msg"])
			assert.Equal(t, "abc", entry["model_id"])
		})
	}
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&config.Config{LogFormat: "text", LogLevel: "debug"}, &buf)
	logger.Debug("debug message", "rows", 3)

	assert.Contains(t, buf.String(), `msg="debug message"`)
	assert.Contains(t, buf.String(), "rows=3")
}
