package main

import (
	"fmt"

	"github.com/aatumaykin/tempo/internal/config"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate tempo configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long: `Validate the configuration file and the jobs file it references,
reporting every problem found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger.New(logger.Config{Level: "info", Format: "text", Output: "stderr"})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		path := configPath
		if len(args) > 0 {
			path = args[0]
		}
		log.Info("Validating configuration", logger.Field{Key: "path", Value: path})

		if err := config.LoadEnvOptional(envPath); err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		errs := cfg.Validate()
		if cfg.Scheduler.JobsFile != "" {
			if _, err := config.LoadJobs(cfg.Scheduler.JobsFile); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			for _, e := range errs {
				log.Error("Validation error", e)
			}
			return errors.Newf("config validation failed: %d errors", len(errs))
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
