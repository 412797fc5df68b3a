package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/builder"
	"github.com/newhook/ecuci/internal/project"
)

var flagCacheTool string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Fill the caches of the running ecu.test instance",
	Long: `Insert the files of every [[cache]] section of the project configuration
into the caches of the running ecu.test instance. Requires ecu.test 2021.1 or
newer.`,
	Args: cobra.NoArgs,
	RunE: runCache,
}

func init() {
	cacheCmd.Flags().StringVarP(&flagCacheTool, "tool", "t", "", "installation of the running instance (default: the only configured installation)")
}

func runCache(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	proj, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer proj.Close()

	caches := builder.RemoveEmptyCaches(proj.Config.Caches)
	if len(caches) == 0 {
		return fmt.Errorf("no caches configured, add a [[cache]] section to %s", project.ConfigFile)
	}
	inst, err := runningInstallation(proj, flagCacheTool)
	if err != nil {
		return err
	}

	return runBuild(ctx, proj, func(ctx context.Context, step *build.Step) error {
		if inst != nil {
			// The instance was started by an earlier build; record it so the
			// cache step talks to its COM server.
			step.Run.AddAction(&build.ToolEnvAction{ToolName: inst.Name, ProgID: inst.GetProgID()})
		}
		return builder.NewCache(caches).Perform(ctx, step)
	})
}

// runningInstallation returns the named installation, the only configured
// one, or nil when the default COM server should be used.
func runningInstallation(proj *project.Project, name string) (*project.InstallationConfig, error) {
	if name == "" {
		if len(proj.Config.Installations) != 1 {
			return nil, nil
		}
		return &proj.Config.Installations[0], nil
	}
	inst, ok := proj.Config.InstallationConfig(name)
	if !ok {
		return nil, fmt.Errorf("installation %s is not configured", name)
	}
	return inst, nil
}
