package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML config file on top of the defaults. Environment
// variables referenced as ${VAR} are expanded before parsing.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return cfg, nil
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then the environment. Call LoadDotEnv
// first to have a .env file take part.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	ApplyEnv(cfg)
	return cfg, nil
}

// LoadAndValidate loads the configuration and validates it.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
