package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}

func TestNewJSON(t *testing.T) {
	var console, out bytes.Buffer
	logger := New(&console, &out, slog.LevelInfo, "json")

	logger.Debug("hidden")
	logger.Info("Activity settled", "activity_id", "a1")

	assert.Empty(t, console.String())
	var record map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &record))
	assert.Equal(t, "Activity settled", record["msg"])
	assert.Equal(t, "a1", record["activity_id"])
}

func TestNewText(t *testing.T) {
	var console, out bytes.Buffer
	New(&console, &out, slog.LevelDebug, "text").Debug("Store opened", "driver", "sqlite")

	assert.Empty(t, out.String())
	assert.Contains(t, console.String(), "Store opened")
}
