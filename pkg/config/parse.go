package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML parses a Config from YAML bytes and validates it.
// This is used for APIs where config is provided as payload (not via filesystem).
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// ParseYAMLString parses a Config from a YAML string and validates it.
func ParseYAMLString(yamlText string) (*Config, error) {
	return ParseYAML([]byte(yamlText))
}
