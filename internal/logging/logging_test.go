package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	logger := Setup("warn", "json", &buf)

	logger.Info().Msg("dropped")
	logger.Warn().Str("etf", "btc").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "btc", entry["etf"])
	assert.Equal(t, "kept", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestSetup_ConsoleAndFallbackLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	logger := Setup("nonsense", "console", &buf)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "INF")
}
