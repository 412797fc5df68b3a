package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/pipeline"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run pipeline scripts",
}

var pipelineRunCmd = &cobra.Command{
	Use:   "run <script.yaml>",
	Short: "Run the steps of a pipeline script as one build",
	Long: `Run a YAML list of pipeline steps as one build. Each entry names a step and
its arguments:

  - step: startET
    args:
      toolName: ET2024
      workspaceDir: C:\workspace
  - step: publishETLogs
    args:
      unstableOnWarning: true
  - step: stopET
    args:
      toolName: ET2024

Installations not configured in the project can be declared in a mapping
form next to the steps:

  installations:
    - name: ET2024
      home: $ET_HOME
  steps:
    - step: startET
      args:
        toolName: ET2024

The script stops at the first step that fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read pipeline script: %w", err)
		}
		if _, err := pipeline.ParseScript(data); err != nil {
			return err
		}

		ctx := GetContext()
		proj, err := openProject(ctx)
		if err != nil {
			return err
		}
		defer proj.Close()

		d := pipeline.NewDispatcher(proj.Config.InstallationList(), proj.DB)
		return runBuild(ctx, proj, func(ctx context.Context, step *build.Step) error {
			n, err := pipeline.RunScript(ctx, d, step, data)
			step.Console.Info("%d pipeline steps completed", n)
			return err
		})
	},
}

var pipelineStepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the available pipeline steps",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range pipeline.Steps() {
			fmt.Fprintln(tableOut, name)
		}
	},
}

func init() {
	pipelineCmd.AddCommand(pipelineRunCmd, pipelineStepsCmd)
}
