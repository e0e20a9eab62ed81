package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aatumaykin/tempo/internal/app"
	"github.com/aatumaykin/tempo/internal/config"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/aatumaykin/tempo/internal/version"
	"github.com/spf13/cobra"
)

var (
	runMode  string
	runDebug bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler",
	Long: `Run the scheduler with the configured jobs until interrupted.
In backtrack mode the configured replay window is replayed and the
command exits when it is done.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(func(c *config.Config) {
			if runMode != "" {
				c.Scheduler.Mode = runMode
			}
			if runDebug {
				c.Logging.Level = "debug"
			}
		})
		if err != nil {
			return err
		}
		return runApp(cmd.Context(), cfg)
	},
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", "", "override scheduler.mode (live, livetrack, backtrack)")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "enable debug logging")
}

func runApp(parent context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	log.Info("Starting tempo",
		logger.Field{Key: "version", Value: version.Version},
		logger.Field{Key: "git_commit", Value: version.GitCommit},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "mode", Value: cfg.Scheduler.Mode})

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, log).Run(ctx); err != nil {
		log.Error("Application stopped with error", err)
		return err
	}
	return nil
}
