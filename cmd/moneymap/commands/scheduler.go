package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moneymap/moneymap/internal/scheduler"
	"github.com/moneymap/moneymap/internal/scheduler/jobs"
)

var runNow bool

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the discovery scheduler daemon",
	Long: `Starts a cron daemon that executes the discovery pipeline on the
configured schedule. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sched := scheduler.New(a.log)
		job := jobs.NewDiscoveryJob(a.runner, a.cfg.DiscoverySchedule, a.log)
		if err := sched.AddJob(job); err != nil {
			return err
		}

		sched.Start()
		defer sched.Stop()

		if runNow {
			if err := sched.RunJob(job.Name()); err != nil {
				a.log.WithError(err).Error("Immediate run failed")
			}
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		sig := <-stop
		a.log.WithField("signal", sig.String()).Info("Scheduler stopping")
		return nil
	},
}

func init() {
	schedulerCmd.Flags().BoolVar(&runNow, "run-now", false, "trigger a discovery run immediately on startup")
	rootCmd.AddCommand(schedulerCmd)
}
