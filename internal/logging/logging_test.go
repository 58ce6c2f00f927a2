package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelVarFilters(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	log := New(&buf, level)

	log.Info("hidden")
	log.Warn("shown", "key", "value")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "key=value")

	level.Set(slog.LevelDebug)
	log.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "timebird.log")

	log, closer, err := Open(path, new(slog.LevelVar))
	require.NoError(t, err)
	log.Info("first")
	require.NoError(t, closer.Close())

	log, closer, err = Open(path, new(slog.LevelVar))
	require.NoError(t, err)
	log.Info("second")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=first")
	assert.Contains(t, string(data), "msg=second")
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Error("nothing") })
}
