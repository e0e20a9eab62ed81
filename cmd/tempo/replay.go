package main

import (
	"github.com/aatumaykin/tempo/internal/clock"
	"github.com/aatumaykin/tempo/internal/config"
	"github.com/spf13/cobra"
)

var (
	replayStart string
	replayEnd   string
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a historical window",
	Long: `Replay the configured jobs over a historical window in backtrack mode.
Jobs fire in time order as fast as the handlers allow; the command exits
once the end of the window is reached.`,
	Example: `  tempo replay --start 2024-01-01 --end "2024-01-31 23:59:59"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(func(c *config.Config) {
			c.Scheduler.Mode = string(clock.ModeBackTrack)
			if replayStart != "" {
				c.Scheduler.Start = replayStart
			}
			if replayEnd != "" {
				c.Scheduler.End = replayEnd
			}
			c.Scheduler.WatchJobsFile = false
		})
		if err != nil {
			return err
		}
		return runApp(cmd.Context(), cfg)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayStart, "start", "", "replay window start (overrides scheduler.start)")
	replayCmd.Flags().StringVar(&replayEnd, "end", "", "replay window end (overrides scheduler.end)")
}
