// Package config provides YAML-based configuration loading with environment
// variable expansion and struct-tag environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load loads configuration from a YAML file with environment variable expansion.
// Fields tagged `env:"NAME"` are then overridden by any set environment
// variable, and the result is validated.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return finish(target)
}

// LoadEnv applies environment overrides to target without reading a file and
// validates the result. Useful when target already holds defaults.
func LoadEnv[T any](target *T) error {
	return finish(target)
}

func finish[T any](target *T) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// LoadWithDefaults loads configuration with fallback to a default file.
// When neither file exists, target keeps its values and only environment
// overrides apply.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			if _, err := os.Stat(defaultFile); err == nil {
				return Load(defaultFile, target)
			}
		}
		return LoadEnv(target)
	}
	return Load(filename, target)
}
