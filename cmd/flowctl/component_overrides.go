package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VariableOverride is one variable assignment a --component YAML file
// can request before flowctl solves the demo component. The core never
// parses YAML itself — this is strictly a demo-entrypoint concern, the
// same role internal/config/yaml.go plays for ambient settings.
type VariableOverride struct {
	Name    string  `yaml:"name"`
	Initial float64 `yaml:"initial"`
}

type overridesFile struct {
	Variables []VariableOverride `yaml:"variables"`
}

// loadOverrides reads a --component YAML file. A missing path is not
// an error — it just means flowctl runs the demo component unmodified.
func loadOverrides(path string) ([]VariableOverride, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read component file: %w", err)
	}
	var f overridesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse component file: %w", err)
	}
	return f.Variables, nil
}
