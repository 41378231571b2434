package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/shipment-service-go/internal/config"
)

func TestNewLogger(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	logger := newLogger(cfg, &buf)
	logger.Info("dropped")
	logger.Warn("kept", "shipment_id", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "shipment-service", line["service"])
	assert.Equal(t, float64(7), line["shipment_id"])
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "loud"

	var buf bytes.Buffer
	newLogger(cfg, &buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
