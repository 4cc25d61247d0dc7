package policy

import (
	"fmt"
	"os"

	"github.com/oscap-tools/hardenplan/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultGate is used when neither a file nor a preset is given.
func DefaultGate() *models.GateConfig {
	return &models.GateConfig{
		Name: "Default Gate",
		Mode: models.GateModeStrict,
		Rules: []models.GateRule{
			{
				Name:       "no_fatal_messages",
				Expr:       `input.counts.fatal == 0`,
				FailureMsg: "The plan cannot be installed with this security profile.",
			},
		},
	}
}

// LoadWithPreset loads a gate from file or preset. The preset takes
// precedence; with neither, DefaultGate is returned.
func LoadWithPreset(path, preset string) (*models.GateConfig, error) {
	if preset != "" {
		if p := GetPreset(preset); p != nil {
			return p, nil
		}
		return nil, fmt.Errorf("unknown preset: %s (use 'baseline' or 'strict')", preset)
	}
	if path == "" {
		return DefaultGate(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a gate YAML file
func LoadFile(path string) (*models.GateConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gate file: %w", err)
	}
	return Parse(data)
}

// Parse gate YAML
func Parse(data []byte) (*models.GateConfig, error) {
	var config models.GateConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse gate YAML: %w", err)
	}

	if len(config.Rules) == 0 {
		return nil, fmt.Errorf("gate must have at least one rule")
	}
	switch config.Mode {
	case "":
		config.Mode = models.GateModeStrict
	case models.GateModeStrict, models.GateModeWarn:
	default:
		return nil, fmt.Errorf("unknown gate mode %q (use 'strict' or 'warn')", config.Mode)
	}

	return &config, nil
}
