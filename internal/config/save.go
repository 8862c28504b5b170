package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Save writes the config to the user's config directory.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(ConfigDir(), "config.yaml"))
}

// SaveTo writes the config to a specific path. The extension picks the format.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch format(path) {
	case "toml":
		data, err = toml.Marshal(c)
	case "yaml":
		data, err = yaml.Marshal(c)
	default:
		return fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	if err != nil {
		return err
	}

	// Create parent directory if needed
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
