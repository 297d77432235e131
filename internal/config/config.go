// Package config handles asset tool configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Output formats.
const (
	FormatYAML = "yaml"
	FormatText = "text"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all tool settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Import  ImportConfig  `yaml:"import" toml:"import"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// ImportConfig controls where models are read from and how.
type ImportConfig struct {
	// Archives are GRF files searched, in order, before the host file system.
	Archives []string `yaml:"archives" toml:"archives"`
	// Format forces an importer by extension (for example "rsm"). Empty picks
	// the importer from the model's own extension.
	Format string `yaml:"format" toml:"format"`
}

// OutputConfig controls command output.
type OutputConfig struct {
	Format  string `yaml:"format" toml:"format"`
	Verbose bool   `yaml:"verbose" toml:"verbose"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Import: ImportConfig{
			Archives: nil,
			Format:   "",
		},
		Output: OutputConfig{
			Format:  FormatText,
			Verbose: false,
		},
	}
}

// ImportExt returns the forced importer extension with a leading dot, or ""
// when none is set.
func (c *Config) ImportExt() string {
	f := strings.ToLower(strings.TrimSpace(c.Import.Format))
	if f == "" || strings.HasPrefix(f, ".") {
		return f
	}
	return "." + f
}

// Validate checks values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatYAML, FormatText:
	default:
		return fmt.Errorf("%w: output format %q (want %s or %s)", ErrInvalidConfig, c.Output.Format, FormatYAML, FormatText)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}
