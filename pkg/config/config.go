// Package config loads the pactplan configuration file: logging, plan
// rendering and matching behaviour knobs for the CLI.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
	ErrEmptyFile    = errors.New("configuration file is empty")
)

// Config is the pactplan configuration file model.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Output   OutputConfig   `yaml:"output"`
	Matching MatchingConfig `yaml:"matching"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is the log output format: text or json.
	Format string `yaml:"format"`
}

// OutputConfig controls plan rendering.
type OutputConfig struct {
	// Colour enables coloured plan output on terminals.
	Colour bool `yaml:"colour"`
}

// MatchingConfig tunes matching behaviour.
type MatchingConfig struct {
	// AllowUnexpectedEntries accepts actual map entries the expectation
	// does not name, skipping the only-entries checks.
	AllowUnexpectedEntries bool `yaml:"allowUnexpectedEntries"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Output: OutputConfig{Colour: true},
	}
}

// LoadFromFile reads and validates a configuration file. Fields absent from
// the file keep their defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return Config{}, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse reads a configuration document from YAML bytes.
func Parse(data []byte) (Config, error) {
	if len(data) == 0 {
		return Config{}, ErrEmptyFile
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values against their allowed sets.
func (c Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return nil
}
