package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Save writes the config to the user's config directory.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(ConfigDir(), "assettool.yaml"))
}

// SaveTo writes the config to a specific path, as TOML when the extension
// is .toml and YAML otherwise.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Encode(f, isTOML(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes the config to w as YAML, or TOML when asTOML is set.
func (c *Config) Encode(w io.Writer, asTOML bool) error {
	if asTOML {
		return toml.NewEncoder(w).Encode(c)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
