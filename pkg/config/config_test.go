package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20, cfg.Browser.MaxSteps)
	assert.Equal(t, 1, cfg.Agent.MaxActionsPerStep)
	assert.Equal(t, 16000, cfg.Agent.MaxHistoryTokens)
	assert.Equal(t, 3, cfg.Agent.MaxConsecutiveFailures)
	assert.Equal(t, 500, cfg.Agent.MaxErrorLength)
	assert.Equal(t, "short_observations_with_short_data", cfg.Agent.HistoryType)
	assert.Equal(t, RaiseRetry, cfg.Agent.RaiseCondition)
	assert.False(t, cfg.Agent.IncludeScreenshot)
	assert.Equal(t, "agent", cfg.Agent.ErrorVerbosity)
	assert.Equal(t, "playwright", cfg.Browser.Backend)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 1020, cfg.Browser.ViewportHeight)
	assert.Equal(t, 30*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Zero(t, cfg.LLM.RequestsPerMinute)
}

func TestViperDefaultsMatchDefaultConfig(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	if diff := cmp.Diff(DefaultConfig(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("viper defaults differ from DefaultConfig (-want +got):\n%s", diff)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid defaults", mutate: func(c *Config) {}},
		{name: "zero actions per step", mutate: func(c *Config) { c.Agent.MaxActionsPerStep = 0 }, wantErr: "max_actions_per_step"},
		{name: "unknown history type", mutate: func(c *Config) { c.Agent.HistoryType = "everything" }, wantErr: "unknown history type"},
		{name: "unknown raise condition", mutate: func(c *Config) { c.Agent.RaiseCondition = "sometimes" }, wantErr: "unknown raise condition"},
		{name: "unknown verbosity", mutate: func(c *Config) { c.Agent.ErrorVerbosity = "loud" }, wantErr: "unknown error verbosity"},
		{name: "screenshot mismatch", mutate: func(c *Config) { c.Agent.IncludeScreenshot = true }, wantErr: "include_screenshot requires browser.screenshot"},
		{name: "screenshots enabled", mutate: func(c *Config) { c.Agent.IncludeScreenshot = true; c.Browser.Screenshot = true }},
		{name: "unknown backend", mutate: func(c *Config) { c.Browser.Backend = "lynx" }, wantErr: "unknown browser backend"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "nope" }, wantErr: "unknown provider"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Batch.Concurrency = 0 }, wantErr: "batch.concurrency"},
		{name: "artifacts without dir", mutate: func(c *Config) { c.Artifacts.Enabled = true; c.Artifacts.Dir = "" }, wantErr: "artifacts.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlBytes := []byte(`
agent:
  max_actions_per_step: 3
  history_type: compressed
browser:
  backend: chromedp
  timeout: 45s
  allowed_domains: ["*.example.com"]
llm:
  provider: gemini
`)
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Agent.MaxActionsPerStep)
	assert.Equal(t, "compressed", cfg.Agent.HistoryType)
	assert.Equal(t, "chromedp", cfg.Browser.Backend)
	assert.Equal(t, 45*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, []string{"*.example.com"}, cfg.Browser.AllowedDomains)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	// untouched keys keep their defaults
	assert.Equal(t, 16000, cfg.Agent.MaxHistoryTokens)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Agent, cfg.Agent)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("SURFER_AGENT_MAX_ACTIONS_PER_STEP", "4")
	t.Setenv("SURFER_BROWSER_HEADLESS", "false")
	t.Setenv("SURFER_AGENT_RAISE_CONDITION", "never")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Agent.MaxActionsPerStep)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, RaiseNever, cfg.Agent.RaiseCondition)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)

	cfg := DefaultConfig()
	cfg.Agent.MaxActionsPerStep = 2
	cfg.Browser.Timeout = 90 * time.Second
	cfg.Browser.DeniedDomains = []string{"*.ads.test"}
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Agent.MaxActionsPerStep)
	assert.Equal(t, 90*time.Second, loaded.Browser.Timeout)
	assert.Equal(t, []string{"*.ads.test"}, loaded.Browser.DeniedDomains)
}

func TestParseRaiseCondition(t *testing.T) {
	tests := []struct {
		in      string
		want    RaiseCondition
		wantErr bool
	}{
		{in: "", want: RaiseRetry},
		{in: "immediately", want: RaiseImmediately},
		{in: "retry", want: RaiseRetry},
		{in: "never", want: RaiseNever},
		{in: "always", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseRaiseCondition(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
