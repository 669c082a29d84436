package headless

import (
	"fmt"
	"time"

	"github.com/entrhq/surfer/pkg/config"
)

// Config represents the configuration for a headless run
type Config struct {
	// Task description
	Task string `yaml:"task" json:"task"`

	// URL the agent starts on, optional
	URL string `yaml:"url" json:"url"`

	// Budget constraints
	Constraints ConstraintConfig `yaml:"constraints" json:"constraints"`

	// Artifacts configuration
	Artifacts config.ArtifactsConfig `yaml:"artifacts" json:"artifacts"`

	// Console verbosity: quiet, normal, verbose or debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// ConstraintConfig defines the resource budget of a run
type ConstraintConfig struct {
	MaxTokens int           `yaml:"max_tokens" json:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Task == "" {
		return fmt.Errorf("task description is required")
	}

	if c.Constraints.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	if c.Constraints.MaxTokens < 0 {
		return fmt.Errorf("max_tokens cannot be negative")
	}

	if c.Artifacts.Enabled && c.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts directory is required when artifacts are enabled")
	}

	if c.Verbosity == "" {
		c.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Verbosity] {
		return fmt.Errorf("invalid verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Verbosity)
	}

	return nil
}

// DefaultConfig returns a configuration for task with no budget limits
// beyond a ten minute timeout.
func DefaultConfig(task string) *Config {
	return &Config{
		Task: task,
		Constraints: ConstraintConfig{
			Timeout: 10 * time.Minute,
		},
		Artifacts: config.ArtifactsConfig{
			Enabled:    true,
			Dir:        "runs",
			Trajectory: true,
		},
		Verbosity: "normal",
	}
}
