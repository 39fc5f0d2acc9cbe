package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the settings file does not exist.
var ErrConfigNotFound = errors.New("settings file not found")

// Load reads Settings from a YAML file. Fields absent from the file
// keep their defaults, so a minimal file only needs the values that
// differ from NewSettings().
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided settings path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	s := NewSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	return s, nil
}

// Save writes Settings to a YAML file, creating parent directories as
// needed.
func Save(path string, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("serialize settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0600)
}
