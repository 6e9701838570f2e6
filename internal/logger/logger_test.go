package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Level(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l, err := New(Config{Level: "debug"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	l, err = New(Config{})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestNew_EnvOverridesLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	l, err := New(Config{Level: "debug"})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
}

func TestNew_Invalid(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestNew_FileOutputJSON(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "indexer.log")

	l, err := New(Config{Output: path, MaxSizeMB: 1})
	require.NoError(t, err)
	Component(l, "backfill").WithField("block", 7).Info("range stored")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "range stored", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "backfill", entry["component"])
	assert.Equal(t, float64(7), entry["block"])
	assert.Contains(t, entry, "timestamp")
	assert.Contains(t, entry["file"], "logger_test.go")
}
