// Package cats implements the cats CLI: schedule runs the candidate
// search over a pipeline/resource/dry-run-metrics input set and writes
// the winning timeline(s); verify re-checks an already-produced timeline
// against the invariants of spec §3/§8.
package cats

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/catsched/cats/internal/catserr"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "cats",
	Short: "Offline DAG pipeline scheduler across fog and cloud resources",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		return nil
	},
}

// Execute runs the root command, mapping any returned error onto the
// process exit code defined by spec §6/§7.
func Execute() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(scheduleCmd, verifyCmd)
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(catserr.ExitCode(err))
	}
}
