package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aatumaykin/tempo/internal/app"
	"github.com/aatumaykin/tempo/internal/config"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/spf13/cobra"
)

var (
	previewCount int
	previewFrom  string
)

// jobsCmd represents the jobs command
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect configured jobs",
}

// jobsPreviewCmd represents the jobs preview command
var jobsPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show upcoming firings",
	Long: `Compute the next firings of every configured job without running
any handler. Randomized steps are drawn as they would be at run time, so
two previews of a ranged job may differ.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}

		loc, err := cfg.Scheduler.Location()
		if err != nil {
			return err
		}
		from := time.Now().In(loc)
		if previewFrom != "" {
			if from, err = config.ParseTime(previewFrom, loc); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		entries, err := app.Preview(ctx, cfg, logger.Nop(), from, previewCount)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "JOB\tUNIT\tFIRES AT")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.JobID, e.Unit, e.At.Format("2006-01-02 15:04:05 MST"))
		}
		return w.Flush()
	},
}

func init() {
	jobsPreviewCmd.Flags().IntVarP(&previewCount, "count", "n", 5, "firings to show per job")
	jobsPreviewCmd.Flags().StringVar(&previewFrom, "from", "", "preview start instant (default: now)")
	jobsCmd.AddCommand(jobsPreviewCmd)
}
