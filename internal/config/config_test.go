package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, ":8080", d.ListenAddr)
	assert.Equal(t, 24*time.Hour, d.RegistryTTL)
	assert.Equal(t, "info", d.LogLevel)
	assert.True(t, d.MetricsEnabled)
}

func TestFromEnv_OverlaysOnlySetVars(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("LOGLEVEL", "debug")

	got := FromEnv(Defaults())
	assert.Equal(t, ":9090", got.ListenAddr)
	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, "json", got.LogFormat) // untouched
}

func TestFromEnv_InvalidDurationIgnored(t *testing.T) {
	t.Setenv("REGISTRY_TTL", "not-a-duration")
	got := FromEnv(Defaults())
	assert.Equal(t, 24*time.Hour, got.RegistryTTL)
}

func TestFromEnv_MetricsEnabledFalse(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "false")
	got := FromEnv(Defaults())
	assert.False(t, got.MetricsEnabled)
}

func TestLoadFile_MissingPathIsNotAnError(t *testing.T) {
	got, err := LoadFile("", Defaults())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestLoadFile_MissingFileIsNotAnError(t *testing.T) {
	got, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), Defaults())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestLoadFile_OverlaysRecognizedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	content := "log_level: debug\nlisten_addr: \":9999\"\nmetrics_enabled: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := LoadFile(path, Defaults())
	require.NoError(t, err)
	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, ":9999", got.ListenAddr)
	assert.False(t, got.MetricsEnabled)
	assert.Equal(t, "json", got.LogFormat) // untouched
}

func TestWatchLogLevel_EmptyPathIsNoOp(t *testing.T) {
	stop, err := WatchLogLevel("", func(string) {})
	require.NoError(t, err)
	stop() // must not panic
}

func TestWatchLogLevel_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o644))

	levels := make(chan string, 1)
	stop, err := WatchLogLevel(path, func(level string) { levels <- level })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))

	select {
	case got := <-levels:
		assert.Equal(t, "debug", got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for log level reload")
	}
}
