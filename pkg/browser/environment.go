// Package browser provides the browser environment the agent acts on: a
// driver-neutral Env that turns actions into observations, and drivers for
// playwright and chromedp.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/surfer/pkg/actions"
)

// Backends.
const (
	BackendPlaywright = "playwright"
	BackendChromedp   = "chromedp"
)

// Defaults.
const (
	DefaultViewportWidth    = 1280
	DefaultViewportHeight   = 1020
	DefaultTimeout          = 30 * time.Second
	DefaultMaxSteps         = 20
	DefaultMaxContentLength = 20000
	DefaultMaxScrapeLength  = 100000
)

// Environment is the browser collaborator of the agent loop.
type Environment interface {
	// Start acquires the browser. It must be paired with Close.
	Start(ctx context.Context) error

	// Close releases the browser. It is safe to call more than once.
	Close() error

	// Act executes an action and returns the resulting observation.
	Act(ctx context.Context, action actions.Action) (*Observation, error)

	// Reset clears the recorded trajectory.
	Reset(ctx context.Context) error

	// Trajectory returns the observations recorded since the last Reset.
	Trajectory() []*Observation

	// MaxSteps is the step budget for a run on this environment.
	MaxSteps() int

	// ScreenshotsEnabled reports whether observations carry screenshots.
	ScreenshotsEnabled() bool
}

// Config configures an environment and its driver.
type Config struct {
	Backend          string        `mapstructure:"backend" yaml:"backend"`
	Headless         bool          `mapstructure:"headless" yaml:"headless"`
	ViewportWidth    int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight   int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxSteps         int           `mapstructure:"max_steps" yaml:"max_steps"`
	Screenshot       bool          `mapstructure:"screenshot" yaml:"screenshot"`
	AllowedDomains   []string      `mapstructure:"allowed_domains" yaml:"allowed_domains,omitempty"`
	DeniedDomains    []string      `mapstructure:"denied_domains" yaml:"denied_domains,omitempty"`
	MaxContentLength int           `mapstructure:"max_content_length" yaml:"max_content_length"`
}

// DefaultConfig returns a headless playwright configuration.
func DefaultConfig() Config {
	return Config{
		Backend:          BackendPlaywright,
		Headless:         true,
		ViewportWidth:    DefaultViewportWidth,
		ViewportHeight:   DefaultViewportHeight,
		Timeout:          DefaultTimeout,
		MaxSteps:         DefaultMaxSteps,
		MaxContentLength: DefaultMaxContentLength,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendPlaywright, BackendChromedp:
	default:
		return fmt.Errorf("unknown browser backend %q (expected %q or %q)", c.Backend, BackendPlaywright, BackendChromedp)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// Driver is the minimal browser automation surface Env needs. Selectors are
// CSS selectors.
type Driver interface {
	Launch(ctx context.Context) error
	Close() error

	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Press(ctx context.Context, key string) error
	GoBack(ctx context.Context) error

	// Evaluate runs a script whose value is a string and returns it.
	Evaluate(ctx context.Context, script string) (string, error)

	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Tabs(ctx context.Context) ([]TabData, error)
}

// NewDriver returns the driver for cfg.Backend.
func NewDriver(cfg Config) (Driver, error) {
	switch cfg.Backend {
	case BackendPlaywright, "":
		return NewPlaywrightDriver(cfg), nil
	case BackendChromedp:
		return NewChromedpDriver(cfg), nil
	default:
		return nil, fmt.Errorf("unknown browser backend %q", cfg.Backend)
	}
}

// New builds an Env for cfg with the configured driver.
func New(cfg Config) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	driver, err := NewDriver(cfg)
	if err != nil {
		return nil, err
	}
	return NewEnv(driver, cfg)
}
