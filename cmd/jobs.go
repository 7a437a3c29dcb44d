package cmd

import (
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/Natural-Intelligence/be-revisable/internal/config"
	"github.com/Natural-Intelligence/be-revisable/internal/jobs"
	"github.com/Natural-Intelligence/be-revisable/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "maintenance job commands",
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(runJobsCmd())
}

func runJobsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "run",
		Short: "Run the maintenance jobs until interrupted",
		Run: func(cmd *cobra.Command, args []string) {
			cnf := config.LoadConfig()
			gormStore := store.NewGormStore(config.GetDb(cnf))

			runner := jobs.NewRunner(
				jobs.NewChangeLogPruner(gormStore, cnf.ChangeLogRetention, "@daily"),
				jobs.NewRevisionReaper(gormStore, cnf.ReaperRetention, "@hourly"),
			)
			runner.Start()
			defer runner.Stop()

			logrus.Info("maintenance jobs running")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, unix.SIGINT, unix.SIGTERM)
			<-stop
		},
	}

	return command
}
