package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newhook/ecuci/internal/pipeline"
	"github.com/newhook/ecuci/internal/project"
)

var (
	flagTool           string
	flagTimeout        int
	flagStopTimeout    int
	flagWorkspaceDir   string
	flagSettingsDir    string
	flagToolDebug      bool
	flagKeepInstance   bool
	flagUpdateUserLibs bool
	flagClearLogs      bool
	flagToolLibsIni    string
	flagTCPPort        int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start ecu.test or the Tool-Server",
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop ecu.test or the Tool-Server",
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart ecu.test",
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the running ecu.test instance",
}

var startETCmd = &cobra.Command{
	Use:   "et",
	Short: "Start an ecu.test installation",
	Long: `Start an ecu.test installation with the given workspace and settings
directory. Running instances are terminated first unless --keep-instance is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstance(func(ctx context.Context, _ *project.Project, inst *pipeline.Instance) error {
			return inst.Start(ctx, startOptions())
		})
	},
}

var stopETCmd = &cobra.Command{
	Use:   "et",
	Short: "Stop the running ecu.test instance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstance(func(ctx context.Context, _ *project.Project, inst *pipeline.Instance) error {
			return inst.Stop(ctx, flagTimeout)
		})
	},
}

var restartETCmd = &cobra.Command{
	Use:   "et",
	Short: "Stop and start an ecu.test installation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstance(func(ctx context.Context, _ *project.Project, inst *pipeline.Instance) error {
			return inst.Restart(ctx, startOptions(), flagStopTimeout)
		})
	},
}

var startTSCmd = &cobra.Command{
	Use:   "ts",
	Short: "Start the Tool-Server of an ecu.test installation",
	Long: `Start the Tool-Server of an ecu.test installation. The ToolLibs.ini and
TCP port default to the tool_libs_ini and tcp_port of the installation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstance(func(ctx context.Context, proj *project.Project, inst *pipeline.Instance) error {
			return inst.StartTS(ctx, tsOptions(proj, inst.Name()))
		})
	},
}

var stopTSCmd = &cobra.Command{
	Use:   "ts",
	Short: "Stop the Tool-Server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstance(func(ctx context.Context, _ *project.Project, inst *pipeline.Instance) error {
			return inst.StopTS(ctx, flagTimeout)
		})
	},
}

var statusETCmd = &cobra.Command{
	Use:   "et",
	Short: "Report whether ecu.test has started its configurations",
	Long: `Report whether the running ecu.test instance has started its test bench
and test configurations. Requires ecu.test 8.0 or newer.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstance(func(ctx context.Context, _ *project.Project, inst *pipeline.Instance) error {
			started, err := inst.IsConfigStarted(ctx)
			if err != nil {
				return err
			}
			if started {
				fmt.Fprintf(tableOut, "%s: configurations started\n", inst.Name())
			} else {
				fmt.Fprintf(tableOut, "%s: configurations not started\n", inst.Name())
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{startETCmd, stopETCmd, restartETCmd, startTSCmd, stopTSCmd, statusETCmd} {
		c.Flags().StringVarP(&flagTool, "tool", "t", "", "installation name (default: the only configured installation)")
	}
	for _, c := range []*cobra.Command{startETCmd, stopETCmd, restartETCmd, startTSCmd, stopTSCmd} {
		c.Flags().IntVar(&flagTimeout, "timeout", 0, "timeout in seconds (default: 120 to start, 30 to stop)")
	}
	for _, c := range []*cobra.Command{startETCmd, restartETCmd} {
		c.Flags().StringVar(&flagWorkspaceDir, "workspace-dir", "", "ecu.test workspace (default: build workspace)")
		c.Flags().StringVar(&flagSettingsDir, "settings-dir", "", "ecu.test settings directory (default: build workspace)")
		c.Flags().BoolVar(&flagToolDebug, "debug-mode", false, "start ecu.test in debug mode")
		c.Flags().BoolVar(&flagKeepInstance, "keep-instance", false, "re-use an already running instance")
		c.Flags().BoolVar(&flagUpdateUserLibs, "update-user-libs", false, "update the user libraries after start")
		c.Flags().BoolVar(&flagClearLogs, "clear-logs", false, "delete the logs of a previous run from the settings directory")
	}
	restartETCmd.Flags().IntVar(&flagStopTimeout, "stop-timeout", 0, "timeout in seconds to stop (default: 30)")
	startTSCmd.Flags().StringVar(&flagToolLibsIni, "tool-libs-ini", "", "ToolLibs.ini path")
	startTSCmd.Flags().IntVar(&flagTCPPort, "tcp-port", 0, "Tool-Server TCP port (default: 5017)")
	startTSCmd.Flags().BoolVar(&flagKeepInstance, "keep-instance", false, "re-use an already running instance")

	startCmd.AddCommand(startETCmd, startTSCmd)
	stopCmd.AddCommand(stopETCmd, stopTSCmd)
	restartCmd.AddCommand(restartETCmd)
	statusCmd.AddCommand(statusETCmd)
}

// toolName returns --tool or the only configured installation.
func toolName(proj *project.Project) (string, error) {
	if flagTool != "" {
		return flagTool, nil
	}
	switch len(proj.Config.Installations) {
	case 0:
		return "", fmt.Errorf("no installation configured, add an [[installation]] section to %s", project.ConfigFile)
	case 1:
		return proj.Config.Installations[0].Name, nil
	default:
		return "", fmt.Errorf("several installations configured, select one with --tool")
	}
}

func startOptions() pipeline.StartOptions {
	return pipeline.StartOptions{
		WorkspaceDir:   flagWorkspaceDir,
		SettingsDir:    flagSettingsDir,
		Timeout:        flagTimeout,
		Debug:          flagToolDebug,
		KeepInstance:   flagKeepInstance,
		UpdateUserLibs: flagUpdateUserLibs,
		ClearLogs:      flagClearLogs,
	}
}

// tsOptions applies the installation's tool_libs_ini and tcp_port where the
// flags are unset.
func tsOptions(proj *project.Project, name string) pipeline.TSOptions {
	opts := pipeline.TSOptions{
		ToolLibsIni:  flagToolLibsIni,
		TCPPort:      flagTCPPort,
		Timeout:      flagTimeout,
		KeepInstance: flagKeepInstance,
	}
	if inst, ok := proj.Config.InstallationConfig(name); ok {
		if opts.ToolLibsIni == "" {
			opts.ToolLibsIni = inst.ToolLibsIni
		}
		if opts.TCPPort <= 0 {
			opts.TCPPort = inst.GetTCPPort()
		}
	}
	return opts
}
