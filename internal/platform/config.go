package platform

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is probed when no --config flag is given.
const DefaultConfigPath = "tance.yaml"

// Config is the optional CLI configuration file. Flags win over file
// values; file values win over built-in defaults.
type Config struct {
	StorePath     string `yaml:"store_path"`
	Namespace     string `yaml:"namespace"`
	ExpirySeconds int    `yaml:"expiry_seconds"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
}

// LoadConfig reads a yaml config file. A missing file is only an error
// when the caller asked for that path explicitly.
func LoadConfig(path string, required bool) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
