package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"backoffice.GO/cron"
)

const jobTimeout = 10 * time.Minute

var jobName string

var cronStartCmd = &cobra.Command{
	Use:   "cron:start",
	Short: "Start the cron scheduler or run a single job by name",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		s := cron.NewScheduler(a.logger.Named("cron"), jobTimeout)
		if err := cron.RegisterDefaults(s, a.deps.Reservations, a.deps.Reports, a.logger.Named("cron")); err != nil {
			return err
		}
		if jobName != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Running cron job: %s\n", jobName)
			return s.RunNow(ctx, jobName)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Starting cron scheduler...")
		for _, j := range s.Jobs() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %s\n", j.Name, j.Schedule)
		}
		c, err := s.Start(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cron scheduler started. Press Ctrl+C to exit.")
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	cronStartCmd.Flags().StringVarP(&jobName, "job", "j", "", "Run a single cron job by name and exit")
	rootCmd.AddCommand(cronStartCmd)
}
