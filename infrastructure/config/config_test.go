package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newTestLoader(dir string, env Environment, vars map[string]string) *Loader {
	l := NewLoader(dir, env)
	l.lookup = func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
	return l
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := newTestLoader(t.TempDir(), Development, nil).Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Analysis.SampleThreshold)
	assert.Equal(t, 20, cfg.Analysis.AggregatorThreshold)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, EventsLog, cfg.Events.Driver)
	assert.Equal(t, []string{"defaults", "environment"}, cfg.LoadedFrom)
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
log_level: debug
analysis:
  sample_threshold: 50
sessions:
  ttl: 30m
`)
	writeFile(t, dir, "staging.yaml", `
analysis:
  aggregator_threshold: 5
storage:
  driver: badger
  badger_path: /tmp/plasma
`)

	cfg, err := newTestLoader(dir, Staging, map[string]string{
		"PLASMA_SAMPLE_THRESHOLD": "75",
		"PLASMA_CORS_ORIGINS":     "https://a.example,https://b.example",
	}).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 75, cfg.Analysis.SampleThreshold)
	assert.Equal(t, 5, cfg.Analysis.AggregatorThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
	assert.Equal(t, StorageBadger, cfg.Storage.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Len(t, cfg.LoadedFrom, 4)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  Environment
		file string
		vars map[string]string
	}{
		{name: "unknown storage driver", env: Development, file: "storage:\n  driver: s3\n"},
		{name: "dynamodb without table", env: Development, file: "storage:\n  driver: dynamodb\n"},
		{name: "eventbridge without bus", env: Development, file: "events:\n  driver: eventbridge\n"},
		{name: "auth without secret", env: Development, file: "auth:\n  enabled: true\n"},
		{name: "zero sample threshold", env: Development, file: "analysis:\n  sample_threshold: 0\n"},
		{name: "memory storage in production", env: Production, vars: map[string]string{
			"PLASMA_AUTH_ENABLED": "true", "PLASMA_JWT_SECRET": "s",
		}},
		{name: "malformed integer", env: Development, vars: map[string]string{"PLASMA_SAMPLE_THRESHOLD": "many"}},
		{name: "malformed yaml", env: Development, file: "analysis: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.file != "" {
				writeFile(t, dir, "base.yaml", tt.file)
			}
			_, err := newTestLoader(dir, tt.env, tt.vars).Load()
			assert.Error(t, err)
		})
	}
}

func TestCurrentEnvironment(t *testing.T) {
	t.Setenv("PLASMA_ENV", "Production")
	assert.Equal(t, Production, CurrentEnvironment())

	t.Setenv("PLASMA_ENV", "elsewhere")
	assert.Equal(t, Development, CurrentEnvironment())
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "analysis:\n  sample_threshold: 10\n")
	loader := newTestLoader(dir, Staging, nil)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := NewWatcher(loader, initial, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Stop()

	var got []*Config
	w.OnChange(func(c *Config) { got = append(got, c) })

	w.Reload()
	assert.Empty(t, got, "unchanged files must not notify")

	writeFile(t, dir, "base.yaml", "analysis:\n  sample_threshold: 20\n")
	w.Reload()
	require.Len(t, got, 1)
	assert.Equal(t, 20, got[0].Analysis.SampleThreshold)
	assert.Equal(t, 20, w.Current().Analysis.SampleThreshold)

	writeFile(t, dir, "base.yaml", "analysis:\n  sample_threshold: -1\n")
	w.Reload()
	assert.Len(t, got, 1)
	assert.Equal(t, 20, w.Current().Analysis.SampleThreshold)
}
