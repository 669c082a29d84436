package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/entrhq/surfer/pkg/config"
	"github.com/entrhq/surfer/pkg/logging"
)

// version is set at build time with
// -ldflags "-X main.version=1.2.3".
var version = "0.1.0"

// flagKeys maps command line flags to configuration keys. Flags override
// SURFER_* variables, which override the config file.
var flagKeys = map[string]string{
	"provider":    "llm.provider",
	"model":       "llm.model",
	"max-steps":   "browser.max_steps",
	"headless":    "browser.headless",
	"backend":     "browser.backend",
	"raise":       "agent.raise_condition",
	"concurrency": "batch.concurrency",
	"output-dir":  "artifacts.dir",
}

// app holds state shared by every subcommand once the root pre-run hook
// has loaded the configuration.
type app struct {
	configPath string
	envFile    string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "surfer",
		Short: "An LLM agent that browses the web to solve tasks",
		Long: `Surfer drives a real browser with a language model. Give it a task in
plain language and it navigates, clicks and reads pages until it can answer,
then has a second model check the answer before reporting it.

Configuration is read from surfer.yaml, SURFER_* environment variables
and command line flags, in increasing order of precedence.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
	}
	rootCmd.SetVersionTemplate("surfer version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultFileName, "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	rootCmd.PersistentFlags().String("provider", "", "LLM provider: openai or gemini")
	rootCmd.PersistentFlags().StringP("model", "m", "", "LLM model name")

	rootCmd.AddCommand(
		newRunCmd(a),
		newBatchCmd(a),
		newInteractiveCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// initialize loads the dotenv file and configuration, then starts logging.
func (a *app) initialize(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", a.envFile, err)
		}
	}

	v, err := config.NewViper(a.configPath)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: file logging unavailable: %v\n", err)
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}
