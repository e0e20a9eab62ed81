package main

import (
	"fmt"
	"strings"

	"github.com/aatumaykin/tempo/internal/config"
	"github.com/aatumaykin/tempo/internal/constants"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envPath    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tempo",
	Short: "tempo - periodic and one-shot job scheduler",
	Long: `tempo fires jobs on recurring schedules (every N seconds to years,
optionally with a randomized step) or once at a given instant. It runs
against the wall clock or replays a historical window as fast as possible.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", constants.DefaultConfigPath, "path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", constants.DefaultEnvPath, "optional .env file loaded before the config")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(jobsCmd)
}

// loadConfig reads the .env file and the config, then applies override
// before validating.
func loadConfig(override func(*config.Config)) (*config.Config, error) {
	if err := config.LoadEnvOptional(envPath); err != nil {
		return nil, errors.Wrap(err, "failed to load env file")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, "  - "+e.Error())
		}
		return nil, errors.Newf("configuration validation failed:\n%s", strings.Join(msgs, "\n"))
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetDefault(log)
	return log, nil
}
