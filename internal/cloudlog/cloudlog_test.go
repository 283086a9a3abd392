package cloudlog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleWritesSeverityAndMessage(t *testing.T) {
	var buf bytes.Buffer
	h := New(&buf, slog.LevelInfo)

	logger := slog.New(h)
	logger.Info("node budget reached", "nodes", 1234)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["severity"])
	assert.Equal(t, "node budget reached", entry["message"])
	assert.EqualValues(t, 1234, entry["nodes"])
}

func TestWithAttrsCarriesForwardOnEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	h := New(&buf, slog.LevelInfo).WithAttrs([]slog.Attr{slog.String("component", "search")})

	logger := slog.New(h)
	logger.Warn("dead search")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARNING", entry["severity"])
	assert.Equal(t, "search", entry["component"])
}

func TestEnabledRespectsLevel(t *testing.T) {
	h := New(&bytes.Buffer{}, slog.LevelWarn)
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}
