package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Initialize("loud"))
	assert.NoError(t, Initialize("debug"))
	assert.NoError(t, Initialize("INFO"), "levels are case-insensitive")
}

func TestGetLoggerAnnotatesComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	require.NoError(t, Initialize("info"))

	log := GetLogger("settings.watcher")
	log.Info().Str("path", "app.settings").Msg("watching")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "settings.watcher", record["component"])
	assert.Equal(t, "watching", record["message"])
	assert.Equal(t, "app.settings", record["path"])
	assert.Contains(t, record, "time")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	require.NoError(t, Initialize("warn"))
	t.Cleanup(func() { _ = Initialize("info") })

	log := GetLogger("test")
	log.Info().Msg("suppressed")
	assert.Empty(t, buf.Bytes())

	log.Warn().Msg("emitted")
	assert.NotEmpty(t, buf.Bytes())
}
