package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoadMissingDefaultYieldsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	conf, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), conf)
	assert.False(t, conf.Development())
}

func TestLoadMissingExplicitFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
environment: development
baseURL: http://localhost:9999/api/v2
pageSize: 50
requestTimeout: 3s
logLevel: debug
logFile: /tmp/timebird-test.log
`)

	conf, err := Load(path)
	require.NoError(t, err)
	assert.True(t, conf.Development())
	assert.Equal(t, "http://localhost:9999/api/v2", conf.BaseURL)
	assert.Equal(t, 50, conf.PageSize)
	assert.Equal(t, 3*time.Second, conf.RequestTimeout)
	assert.Equal(t, slog.LevelDebug, conf.Level())

	p, err := conf.LogPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/timebird-test.log", p)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "pageSize: 5\n")

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, conf.PageSize)
	assert.Equal(t, EnvProduction, conf.Environment)
	assert.Equal(t, 10*time.Second, conf.RequestTimeout)
	assert.Equal(t, "info", conf.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"environment", "environment: staging\n"},
		{"log level", "logLevel: loud\n"},
		{"yaml", "pageSize: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, tt.body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestDefaultLogPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	p, err := Default().LogPath()
	require.NoError(t, err)
	assert.Equal(t, "timebird.log", filepath.Base(p))
	assert.Equal(t, "timebird", filepath.Base(filepath.Dir(p)))
}

// ============================================================
// Watcher
// ============================================================

func TestReloadWaitsForQuietPeriod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "pageSize: 7\n")

	var calls atomic.Int32
	var got atomic.Int32
	w := NewWatcher(path, func(c *Config) {
		calls.Add(1)
		got.Store(int32(c.PageSize))
	}, WithDebounce(150*time.Millisecond))
	t.Cleanup(w.stop)

	// Truncate, then write the real content inside the window.
	writeFile(t, path, "")
	w.reactToFileWrite()
	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "pageSize: 50\n")
	w.reactToFileWrite()

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(50), got.Load())

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestReloadAfterStopIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "pageSize: 7\n")

	var calls atomic.Int32
	w := NewWatcher(path, func(*Config) { calls.Add(1) }, WithDebounce(20*time.Millisecond))
	w.reactToFileWrite()
	w.stop()
	w.reactToFileWrite()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestReloadBadFileSkipsCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "environment: nowhere\n")

	called := false
	w := NewWatcher(path, func(*Config) { called = true })
	assert.False(t, w.reload())
	assert.False(t, called)
}

func TestWatcherPicksUpWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "pageSize: 1\n")

	var pageSize atomic.Int32
	w := NewWatcher(path, func(c *Config) { pageSize.Store(int32(c.PageSize)) }, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	assert.Eventually(t, func() bool {
		os.WriteFile(path, []byte("pageSize: 42\n"), 0o600)
		return pageSize.Load() == 42
	}, 5*time.Second, 50*time.Millisecond)
}
