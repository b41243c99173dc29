// Package config provides YAML-based configuration loading with environment
// variable expansion and an environment overlay.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// EnvOverlay is implemented by configurations that read individual
// environment variables on top of the file values.
type EnvOverlay interface {
	ApplyEnv(lookup func(string) (string, bool)) error
}

// Load loads configuration from a YAML file with environment variable expansion.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := decode(filename, data, target); err != nil {
		return err
	}
	return finish(target)
}

// LoadOptional behaves like Load but keeps target's defaults when filename is
// empty or does not exist, so a deployment can be configured through the
// environment alone.
func LoadOptional[T any](filename string, target *T) error {
	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return fmt.Errorf("failed to read config file %s: %w", filename, err)
		default:
			if err := decode(filename, data, target); err != nil {
				return err
			}
		}
	}
	return finish(target)
}

func decode[T any](filename string, data []byte, target *T) error {
	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

// finish applies the environment overlay and validates.
func finish[T any](target *T) error {
	if overlay, ok := any(target).(EnvOverlay); ok {
		if err := overlay.ApplyEnv(os.LookupEnv); err != nil {
			return fmt.Errorf("config environment: %w", err)
		}
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}
