package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/config"
)

func TestNewHandlerJSONLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(config.LoggingConfig{Level: "warn", Format: "json"}, &buf))

	log.Info("dropped")
	log.Warn("kept", "key", "value")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestNewHandlerWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	var buf bytes.Buffer
	log := slog.New(NewHandler(config.LoggingConfig{Level: "info", Format: "text", File: path, MaxSizeMB: 1}, &buf))

	log.Info("to both")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, buf.String(), "to both")
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "", RequestID(context.Background()))
	assert.NotNil(t, FromContext(ctx))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}
