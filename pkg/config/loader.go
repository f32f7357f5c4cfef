package config

import (
	"fmt"
	"os"

	"github.com/optgrid/simplex-core/pkg/utils"
)

// Load reads and parses a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// validate performs validation on the configuration
func validate(cfg *Config) error {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if cfg.Group.Workers < 1 {
		return fmt.Errorf("group.workers must be at least 1, got %d", cfg.Group.Workers)
	}

	if cfg.Solver.Dimension < 1 {
		return fmt.Errorf("solver.dimension must be at least 1, got %d", cfg.Solver.Dimension)
	}
	if cfg.Group.Workers > cfg.Solver.Dimension+1 {
		return fmt.Errorf("group.workers must not exceed dimension+1 (%d workers, dimension %d)",
			cfg.Group.Workers, cfg.Solver.Dimension)
	}
	if cfg.Solver.Step < 0 {
		return fmt.Errorf("solver.step must not be negative, got %v", cfg.Solver.Step)
	}
	if len(cfg.Solver.Guess) > 0 && len(cfg.Solver.Guess) != cfg.Solver.Dimension {
		return fmt.Errorf("solver.guess has %d coordinates, dimension is %d",
			len(cfg.Solver.Guess), cfg.Solver.Dimension)
	}
	if !utils.AllFinite(cfg.Solver.Guess) {
		return fmt.Errorf("solver.guess coordinates must be finite, got %v", cfg.Solver.Guess)
	}
	if c := cfg.Solver.Coefficients; c != nil {
		if c.Rho <= 0 || c.Xi <= 0 || c.Gamma <= 0 {
			return fmt.Errorf("coefficients rho, xi, and gamma must be positive")
		}
		if c.Sigma <= 0 || c.Sigma >= 1 {
			return fmt.Errorf("coefficient sigma must be in (0, 1), got %v", c.Sigma)
		}
	}
	if tc := cfg.Solver.Tolerance; tc != nil {
		validPolicies := map[string]bool{
			"absolute": true,
			"relative": true,
			"diameter": true,
		}
		if !validPolicies[tc.Policy] {
			return fmt.Errorf("invalid tolerance.policy: %s (must be absolute, relative, or diameter)", tc.Policy)
		}
		if tc.Value <= 0 {
			return fmt.Errorf("tolerance.value must be positive, got %v", tc.Value)
		}
	}

	if cfg.Objective.Name == "" {
		return fmt.Errorf("objective.name is required")
	}

	return nil
}
