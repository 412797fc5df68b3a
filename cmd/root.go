package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/newhook/ecuci/internal/logging"
	cosignal "github.com/newhook/ecuci/internal/signal"
)

var (
	// rootCtx holds the signal-cancellable context for the application
	rootCtx    context.Context
	rootCancel context.CancelFunc

	flagProject string
	flagDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "ecuci",
	Short: "Drive ecu.test from CI builds",
	Long: `ecuci starts and stops ecu.test and its Tool-Server, fills the ecu.test
caches and publishes the ecu.test logs and generated reports of a build.

Every command runs as a build of the project found in the current directory
(or --project); builds and their reports are recorded in .ecuci/builds.db.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = cosignal.WithSignalCancel(context.Background())
		if flagDebug {
			logging.SetDebug(true)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rootCancel != nil {
			rootCancel()
		}
		logging.Close()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns the root context that is cancelled on SIGINT/SIGTERM.
// This should be used by all subcommands instead of context.Background().
func GetContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return rootCtx
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "project directory (default: auto-detect from cwd)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging and [TT] DEBUG console output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(buildsCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(atxCmd)
	rootCmd.AddCommand(migrateCmd)
}
