// Package config loads and saves surfer's configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// SURFER_* environment variables (for example SURFER_AGENT_MAX_ACTIONS_PER_STEP).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/surfer/pkg/browser"
	"github.com/entrhq/surfer/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("config")
	if err != nil {
		debugLog.Warnf("Failed to initialize config logger, using stderr fallback: %v", err)
	}
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SURFER"

// DefaultFileName is the config file looked up when no path is given.
const DefaultFileName = "surfer.yaml"

// Config is the complete configuration.
type Config struct {
	Agent     AgentConfig     `mapstructure:"agent" yaml:"agent"`
	Browser   browser.Config  `mapstructure:"browser" yaml:"browser"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Logging   logging.Config  `mapstructure:"logging" yaml:"logging"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch"`
}

// ArtifactsConfig controls the files written after each run.
type ArtifactsConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir        string `mapstructure:"dir" yaml:"dir"`
	Trajectory bool   `mapstructure:"trajectory" yaml:"trajectory"`
}

// BatchConfig controls concurrent runs.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Agent:   DefaultAgentConfig(),
		Browser: browser.DefaultConfig(),
		LLM:     DefaultLLMConfig(),
		Logging: logging.DefaultConfig(),
		Artifacts: ArtifactsConfig{
			Dir:        "runs",
			Trajectory: true,
		},
		Batch: BatchConfig{Concurrency: 2},
	}
}

// SetDefaults registers every default with v so that environment overrides
// apply to keys that are absent from the file.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// -- Agent --
	v.SetDefault("agent.max_actions_per_step", d.Agent.MaxActionsPerStep)
	v.SetDefault("agent.max_history_tokens", d.Agent.MaxHistoryTokens)
	v.SetDefault("agent.max_consecutive_failures", d.Agent.MaxConsecutiveFailures)
	v.SetDefault("agent.max_error_length", d.Agent.MaxErrorLength)
	v.SetDefault("agent.history_type", d.Agent.HistoryType)
	v.SetDefault("agent.raise_condition", string(d.Agent.RaiseCondition))
	v.SetDefault("agent.include_screenshot", d.Agent.IncludeScreenshot)
	v.SetDefault("agent.error_verbosity", d.Agent.ErrorVerbosity)
	v.SetDefault("agent.categorize_pages", d.Agent.CategorizePages)
	v.SetDefault("agent.custom_instructions", d.Agent.CustomInstructions)

	// -- Browser --
	v.SetDefault("browser.backend", d.Browser.Backend)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.viewport_width", d.Browser.ViewportWidth)
	v.SetDefault("browser.viewport_height", d.Browser.ViewportHeight)
	v.SetDefault("browser.timeout", d.Browser.Timeout.String())
	v.SetDefault("browser.max_steps", d.Browser.MaxSteps)
	v.SetDefault("browser.screenshot", d.Browser.Screenshot)
	v.SetDefault("browser.allowed_domains", []string{})
	v.SetDefault("browser.denied_domains", []string{})
	v.SetDefault("browser.max_content_length", d.Browser.MaxContentLength)

	// -- LLM --
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.validator_model", d.LLM.ValidatorModel)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.requests_per_minute", d.LLM.RequestsPerMinute)

	// -- Logging --
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.console", d.Logging.Console)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)

	// -- Artifacts / Batch --
	v.SetDefault("artifacts.enabled", d.Artifacts.Enabled)
	v.SetDefault("artifacts.dir", d.Artifacts.Dir)
	v.SetDefault("artifacts.trajectory", d.Artifacts.Trajectory)
	v.SetDefault("batch.concurrency", d.Batch.Concurrency)
}

// NewViper returns a viper instance with defaults and environment binding
// configured. A non-empty path is read as YAML; a missing file is ignored.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		return v, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		debugLog.Infof("config file %s not found, using defaults", path)
		return v, nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return v, nil
}

// Load reads the configuration at path and validates it.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return NewConfigFromViper(v)
}

// NewConfigFromViper decodes and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if c.Agent.IncludeScreenshot && !c.Browser.Screenshot {
		return fmt.Errorf("agent.include_screenshot requires browser.screenshot")
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be a positive integer")
	}
	if c.Artifacts.Enabled && c.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts.dir is required when artifacts are enabled")
	}
	return nil
}
