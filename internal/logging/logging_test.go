package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Output: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("listing submitted", zap.String("listing_id", "l-1"))
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "listing submitted", entry["msg"])
	assert.Equal(t, "l-1", entry["listing_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_DevelopmentConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Development: true, Level: "debug", Output: &buf})
	require.NoError(t, err)

	logger.Debug("resolving options", zap.String("field", "city"))
	require.NoError(t, logger.Sync())
	assert.Contains(t, buf.String(), "resolving options")
	assert.Contains(t, buf.String(), `"field": "city"`)
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}
