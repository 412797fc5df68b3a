package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newhook/ecuci/internal/project"
)

var (
	flagInitInstallations []string
	flagInitProgID        string
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a new ecuci project",
	Long: `Create a new ecuci project in the given directory (default: the current
directory). The project configuration is written to .ecuci/config.toml with
every section documented.

Example:
  ecuci init --installation 'ET2024=C:\Program Files\ECU-TEST 2024.1'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringArrayVar(&flagInitInstallations, "installation", nil, "ecu.test installation as NAME=HOME (repeatable)")
	initCmd.Flags().StringVar(&flagInitProgID, "prog-id", "", "COM prog id of the installations (default: ECU-TEST.Application)")
}

func parseInstallations(values []string, progID string) ([]project.InstallationConfig, error) {
	var installs []project.InstallationConfig
	for _, v := range values {
		name, home, ok := strings.Cut(v, "=")
		name, home = strings.TrimSpace(name), strings.TrimSpace(home)
		if !ok || name == "" || home == "" {
			return nil, fmt.Errorf("invalid installation %q, expected NAME=HOME", v)
		}
		installs = append(installs, project.InstallationConfig{Name: name, Home: home, ProgID: progID})
	}
	return installs, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	installs, err := parseInstallations(flagInitInstallations, flagInitProgID)
	if err != nil {
		return err
	}

	proj, err := project.Create(GetContext(), dir, installs)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	defer proj.Close()

	fmt.Printf("Project '%s' created successfully!\n", proj.Name())
	fmt.Printf("  Directory: %s\n", proj.Root)
	fmt.Printf("  Config: %s/%s\n", project.ConfigDir, project.ConfigFile)
	for _, inst := range installs {
		fmt.Printf("  Installation: %s (%s)\n", inst.Name, inst.Home)
	}
	return nil
}
