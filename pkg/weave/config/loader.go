package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FromFile loads configuration from a file, auto-detecting format by
// extension. Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", filepath.Ext(path))
	}
}

// FromYAML parses YAML data into a Config.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses JSON data into a Config.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}

// Settings is the typed configuration the engine and CLI consume.
type Settings struct {
	// CheckpointPath is the SQLite database file for durable checkpoints.
	// Empty selects the in-memory store.
	CheckpointPath string

	// Capacity bounds how many workflows the engine tracks at once.
	Capacity int

	// MaxSteps bounds node executions per run as a loop safety net.
	MaxSteps int

	// AgentCommand is the executable invoked for agent tasks.
	AgentCommand string

	// AgentArgs are extra arguments passed before the prompt.
	AgentArgs []string

	// AgentTimeout bounds a single agent invocation.
	AgentTimeout time.Duration

	// DefinitionDir holds workflow definition files loaded at startup.
	DefinitionDir string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Defaults returns Settings with documented defaults.
func Defaults() Settings {
	return Settings{
		Capacity:     64,
		MaxSteps:     1000,
		AgentCommand: "claude",
		AgentTimeout: 5 * time.Minute,
		LogLevel:     "info",
	}
}

// SettingsFrom extracts Settings from a Config, applying defaults for
// anything unset.
func SettingsFrom(cfg Config) Settings {
	def := Defaults()
	agent := cfg.Section("agent")
	return Settings{
		CheckpointPath: cfg.String("checkpoint_path", def.CheckpointPath),
		Capacity:       cfg.Int("capacity", def.Capacity),
		MaxSteps:       cfg.Int("max_steps", def.MaxSteps),
		AgentCommand:   agent.String("command", def.AgentCommand),
		AgentArgs:      agent.StringSlice("args", def.AgentArgs),
		AgentTimeout:   agent.Duration("timeout", def.AgentTimeout),
		DefinitionDir:  cfg.String("definition_dir", def.DefinitionDir),
		LogLevel:       cfg.String("log_level", def.LogLevel),
	}
}
