package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for config files that are neither YAML nor TOML.
var ErrUnknownFormat = errors.New("unknown config format")

// Environment variables that override the API credentials and host.
const (
	EnvAppID     = "RC_APP_ID"
	EnvAppSecret = "RC_APP_SECRET"
	EnvHost      = "RC_ENDPOINT"
)

// Load loads configuration with priority: defaults < file < environment < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyEnv(cfg)

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.toml",
		filepath.Join(ConfigDir(), "config.yaml"),
		filepath.Join(ConfigDir(), "config.toml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "VRC3D")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "VRC3D")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "vrc3d")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "vrc3d")
	}
}

// loadFromFile loads config from a YAML or TOML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch format(path) {
	case "toml":
		return toml.Unmarshal(data, cfg)
	case "yaml":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// applyEnv copies credentials from the environment so secrets can stay out
// of config files.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAppID); v != "" {
		cfg.Network.AppID = v
	}
	if v := os.Getenv(EnvAppSecret); v != "" {
		cfg.Network.AppSecret = v
	}
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Network.Host = v
	}
}

// format maps a file extension to "yaml" or "toml".
func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	}
	return ""
}
