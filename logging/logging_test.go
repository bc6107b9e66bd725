package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "warn"

	logger, closeFn, err := New(cfg, &buf)
	require.NoError(t, err)
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown", "user", "u1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "user=u1")
	assert.Contains(t, out, "settlement")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.JSON = true

	logger, _, err := New(cfg, &buf)
	require.NoError(t, err)

	logger.Info("remittance run complete", "generated", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "remittance run complete", line["msg"])
	assert.EqualValues(t, 3, line["generated"])
}

func TestNew_FileSink(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.File = filepath.Join(t.TempDir(), "logs", "settlement.log")

	logger, closeFn, err := New(cfg, &buf)
	require.NoError(t, err)

	logger.Error("storage failure", "op", "commit")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "storage failure")
	assert.Contains(t, buf.String(), "storage failure", "stderr still receives the line")
}

func TestNew_BadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"

	_, _, err := New(cfg, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Error("dropped") })
}
