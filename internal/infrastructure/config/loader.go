// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading configuration from files and the environment.
type Loader struct {
	configDir string
	envFiles  []string
	lookup    LookupFunc
}

// NewLoader creates a new configuration loader.
// If configDir is empty, it defaults to ~/.tokencalc.
func NewLoader(configDir string) (*Loader, error) {
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".tokencalc")
	}

	return &Loader{
		configDir: configDir,
		envFiles:  []string{".env", filepath.Join(configDir, ".env")},
	}, nil
}

// WithEnvFiles replaces the .env files consulted by Load.
func (l *Loader) WithEnvFiles(files ...string) *Loader {
	l.envFiles = files
	return l
}

// WithLookup replaces the environment lookup, mainly for tests.
func (l *Loader) WithLookup(lookup LookupFunc) *Loader {
	l.lookup = lookup
	return l
}

// Load loads configuration from the specified file or default location,
// then applies environment overrides. A missing file yields the defaults.
func (l *Loader) Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = l.DefaultConfigPath()
	}

	cfg := NewDefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if err := decodeFile(configPath, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.expandPaths()
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file path.
// Returns an error if the file doesn't exist.
func (l *Loader) LoadFromFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	cfg := NewDefaultConfig()
	if err := decodeFile(configPath, cfg); err != nil {
		return nil, err
	}
	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.expandPaths()
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	lookup := l.lookup
	if lookup == nil {
		var err error
		lookup, err = Environment(l.envFiles...)
		if err != nil {
			return err
		}
	}
	if err := ApplyEnv(cfg, lookup); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Save saves configuration to the specified file or default location.
func (l *Loader) Save(cfg *Config, configPath string) error {
	if configPath == "" {
		configPath = l.DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# tokencalc configuration
# Environment variables prefixed with TOKENCALC_ override these values.
#
`
	content := header + string(data)

	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ConfigDir returns the configuration directory path.
func (l *Loader) ConfigDir() string {
	return l.configDir
}

// DefaultConfigPath returns the default configuration file path.
func (l *Loader) DefaultConfigPath() string {
	return filepath.Join(l.configDir, "config.yaml")
}

// expandPaths resolves a leading ~ in path settings.
func (c *Config) expandPaths() {
	c.Tokenizer.CacheDir = ExpandHome(c.Tokenizer.CacheDir)
	c.Session.DatabasePath = ExpandHome(c.Session.DatabasePath)
	c.Logging.File = ExpandHome(c.Logging.File)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
