package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergio/weave/pkg/weave/config"
)

func TestConfig_Accessors(t *testing.T) {
	cfg := config.New(map[string]any{
		"name":     "weave",
		"enabled":  true,
		"capacity": 32,
		"float":    float64(8),
		"frac":     2.5,
		"tags":     []any{"a", "b"},
		"mixed":    []any{"a", 1},
		"nested":   map[string]any{"command": "claude"},
	})

	assert.Equal(t, "weave", cfg.String("name", "x"))
	assert.Equal(t, "x", cfg.String("missing", "x"))
	assert.Equal(t, "x", cfg.String("capacity", "x"))

	assert.True(t, cfg.Bool("enabled", false))
	assert.False(t, cfg.Bool("missing", false))

	assert.Equal(t, 32, cfg.Int("capacity", 1))
	assert.Equal(t, 8, cfg.Int("float", 1))
	// fractional floats don't silently truncate
	assert.Equal(t, 1, cfg.Int("frac", 1))

	assert.Equal(t, []string{"a", "b"}, cfg.StringSlice("tags", nil))
	assert.Nil(t, cfg.StringSlice("mixed", nil))

	assert.Equal(t, "claude", cfg.Section("nested").String("command", ""))
	assert.Equal(t, "d", cfg.Section("missing").String("command", "d"))

	assert.True(t, cfg.Has("name"))
	assert.False(t, cfg.Has("ghost"))
}

func TestConfig_Duration(t *testing.T) {
	cfg := config.New(map[string]any{
		"str":     "90s",
		"bad":     "ninety",
		"seconds": 30,
		"float":   1.5,
		"native":  2 * time.Minute,
	})

	def := 10 * time.Second
	assert.Equal(t, 90*time.Second, cfg.Duration("str", def))
	assert.Equal(t, def, cfg.Duration("bad", def))
	assert.Equal(t, 30*time.Second, cfg.Duration("seconds", def))
	assert.Equal(t, 1500*time.Millisecond, cfg.Duration("float", def))
	assert.Equal(t, 2*time.Minute, cfg.Duration("native", def))
	assert.Equal(t, def, cfg.Duration("missing", def))
}

func TestNew_NilMap(t *testing.T) {
	cfg := config.New(nil)
	assert.Equal(t, "d", cfg.String("any", "d"))
	assert.NotNil(t, cfg.Raw())
}

func TestFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
checkpoint_path: /tmp/weave.db
capacity: 16
agent:
  command: mock-agent
  args: ["-m", "fast"]
  timeout: 30s
`))
	require.NoError(t, err)

	s := config.SettingsFrom(cfg)
	assert.Equal(t, "/tmp/weave.db", s.CheckpointPath)
	assert.Equal(t, 16, s.Capacity)
	assert.Equal(t, "mock-agent", s.AgentCommand)
	assert.Equal(t, []string{"-m", "fast"}, s.AgentArgs)
	assert.Equal(t, 30*time.Second, s.AgentTimeout)
	// untouched keys keep defaults
	assert.Equal(t, 1000, s.MaxSteps)
	assert.Equal(t, "info", s.LogLevel)
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := config.FromJSON([]byte("{"))
	assert.Error(t, err)
	_, err = config.FromYAML([]byte(":::"))
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "weave.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level": "debug"}`), 0o644))
	cfg, err := config.FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", config.SettingsFrom(cfg).LogLevel)

	_, err = config.FromFile(filepath.Join(dir, "weave.toml"))
	assert.Error(t, err)
	_, err = config.FromFile(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestSettingsFrom_EmptyConfigYieldsDefaults(t *testing.T) {
	s := config.SettingsFrom(config.New(nil))
	assert.Equal(t, config.Defaults(), s)
}
