package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "bogus", false)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Info().Str("instance", "flow").Msg("visible")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "flow", entry["instance"])
}

func TestNew_ParsesLevel(t *testing.T) {
	logger := New(&bytes.Buffer{}, "debug", false)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	t.Cleanup(func() { Logger = prev })
	Logger = New(&buf, "info", false)

	componentLogger := WithComponent("rules.engine")
	componentLogger.Info().Msg("configured")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rules.engine", entry["component"])
	assert.Equal(t, "configured", entry["message"])
}
