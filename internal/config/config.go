// ABOUTME: Configuration loading for aiharness
// ABOUTME: YAML file with ${VAR} expansion, overridden by AIH_* environment variables

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultPort is the HTTP server port when nothing else is configured.
const DefaultPort = 8787

// Config is the complete aiharness configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// StorageConfig holds the storage root configuration.
type StorageConfig struct {
	// DataDir holds the registry database and the default project root.
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envOverrides are process-environment overrides applied on top of the file.
type envOverrides struct {
	Port    int    `envconfig:"PORT"`
	DataDir string `envconfig:"DATA_DIR"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: DefaultPort},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from an optional YAML file at path, then
// applies AIH_PORT and AIH_DATA_DIR overrides from the environment.
// Environment variables in the format ${VAR_NAME} are expanded in the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	var env envOverrides
	if err := envconfig.Process("aih", &env); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}
	if env.DataDir != "" {
		cfg.Storage.DataDir = env.DataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// DefaultPath returns the expected config file location.
// Priority: AIHARNESS_CONFIG env var > XDG_CONFIG_HOME/aiharness/config.yaml > ~/.config/aiharness/config.yaml
func DefaultPath() string {
	if envPath := os.Getenv("AIHARNESS_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "aiharness", "config.yaml")
}

// LoadDefault loads the configuration from DefaultPath. When no config file
// exists at the conventional location, built-in defaults and AIH_* overrides
// apply; a path set explicitly via AIHARNESS_CONFIG must exist.
func LoadDefault() (*Config, error) {
	path := DefaultPath()
	if os.Getenv("AIHARNESS_CONFIG") == "" {
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	return Load(path)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with environment values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aiharness"
	}
	return filepath.Join(home, ".aiharness")
}
