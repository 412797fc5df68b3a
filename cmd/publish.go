package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/pipeline"
	"github.com/newhook/ecuci/internal/project"
	"github.com/newhook/ecuci/internal/publisher"
)

var (
	flagPublishSettingsDir string
	flagPublishReportDirs  []string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish ecu.test logs and reports",
}

var publishLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Archive and parse the ecu.test logs",
	Long: `Archive ECU_TEST_OUT.log and ECU_TEST_ERR.log and index their warnings and
errors. The [log_publisher] section configures the build rating.

Logs are read from --settings-dir, or from the build workspace. With
test_specific the logs of every --report-dir are published instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return publish(func(ctx context.Context, proj *project.Project, step *build.Step) error {
			cfg := &proj.Config.LogPublisher
			return publisher.New(cfg.Flags(), cfg.Strategy(), proj.DB).Perform(ctx, step)
		})
	},
}

var publishGeneratorsCmd = &cobra.Command{
	Use:   "generators",
	Short: "Generate and archive reports of the test report databases",
	Long: `Render the report databases (*.trf) of every --report-dir with the
generators of the [generator_publisher] section. ecu.test is started for the
duration of the publish when no instance is running; --tool selects the
installation instead of tool_name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return publish(func(ctx context.Context, proj *project.Project, step *build.Step) error {
			strategy, err := proj.Config.GeneratorStrategy()
			if err != nil {
				return err
			}
			flags := proj.Config.GeneratorPublisher.Flags()
			if flagTool == "" {
				return publisher.New(flags, strategy, proj.DB).Perform(ctx, step)
			}
			d := pipeline.NewDispatcher(proj.Config.InstallationList(), proj.DB)
			inst, err := pipeline.NewET(d, step).Installation(flagTool)
			if err != nil {
				step.Console.Error("%s", err.Error())
				return err
			}
			return inst.PublishGenerators(ctx, strategy.Generators, strategy.CustomGenerators, flags)
		})
	},
}

func init() {
	publishGeneratorsCmd.Flags().StringVarP(&flagTool, "tool", "t", "", "installation to render the reports with")
	publishLogsCmd.Flags().StringVar(&flagPublishSettingsDir, "settings-dir", "", "ecu.test settings directory holding the logs")
	for _, c := range []*cobra.Command{publishLogsCmd, publishGeneratorsCmd} {
		c.Flags().StringArrayVar(&flagPublishReportDirs, "report-dir", nil, "test report directory of a test run (repeatable)")
	}
	publishCmd.AddCommand(publishLogsCmd, publishGeneratorsCmd)
}

// publish runs fn as a build. The settings and report directories given on
// the command line are recorded as the tool and test runs of that build.
func publish(fn func(ctx context.Context, proj *project.Project, step *build.Step) error) error {
	ctx := GetContext()
	proj, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer proj.Close()

	reportDirs := make([]string, 0, len(flagPublishReportDirs))
	for _, dir := range flagPublishReportDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("invalid report directory %s: %w", dir, err)
		}
		reportDirs = append(reportDirs, abs)
	}

	return runBuild(ctx, proj, func(ctx context.Context, step *build.Step) error {
		if flagPublishSettingsDir != "" {
			step.Run.AddAction(&build.ToolEnvAction{SettingsDir: step.Abs(flagPublishSettingsDir)})
		}
		for _, dir := range reportDirs {
			step.Run.AddAction(&build.TestEnvAction{
				TestName:      filepath.Base(dir),
				TestReportDir: dir,
			})
		}
		return fn(ctx, proj, step)
	})
}
