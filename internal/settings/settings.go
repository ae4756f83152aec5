// Package settings reads the sample's config.yaml.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	KeyProjectEndpoint = "project_endpoint"
	KeyConnectionID    = "connection_id"
	KeyModelName       = "model_name"
)

// Settings are the recognised keys of config.yaml. Raw keeps every key of the
// file so it can be used for template binding.
type Settings struct {
	ProjectEndpoint string `yaml:"project_endpoint"`
	ConnectionID    string `yaml:"connection_id"`
	ModelName       string `yaml:"model_name"`

	Raw map[string]any `yaml:"-"`
}

// ErrMissingKey is wrapped by Load when a required key is absent or empty.
var ErrMissingKey = errors.New("missing required key")

// Load reads and validates a YAML settings file.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes YAML settings from memory.
func Parse(data []byte) (Settings, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Settings{}, fmt.Errorf("parse yaml: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse yaml: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	s.Raw = raw
	return s, s.Validate()
}

// Validate reports every required key that is missing.
func (s Settings) Validate() error {
	var missing []string
	if strings.TrimSpace(s.ProjectEndpoint) == "" {
		missing = append(missing, KeyProjectEndpoint)
	}
	if strings.TrimSpace(s.ConnectionID) == "" {
		missing = append(missing, KeyConnectionID)
	}
	if strings.TrimSpace(s.ModelName) == "" {
		missing = append(missing, KeyModelName)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}
	return nil
}
