package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newhook/ecuci/internal/db"
	"github.com/newhook/ecuci/internal/project"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	Long:  `Manage the migrations of the build database in .ecuci/.`,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProject(migrateStatus)
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long:  `Apply all pending migrations. This happens whenever the project is opened.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProject(func(ctx context.Context, proj *project.Project) error {
			if err := db.RunMigrations(ctx, proj.DB.DB); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Fprintln(tableOut, "All migrations applied.")
			return nil
		})
	},
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back the last migration",
	Long: `Roll back the most recently applied migration. The next command that
opens the project applies it again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProject(migrateRollback)
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd, migrateUpCmd, migrateRollbackCmd)
}

func withProject(fn func(ctx context.Context, proj *project.Project) error) error {
	ctx := GetContext()
	proj, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer proj.Close()
	return fn(ctx, proj)
}

func migrateStatus(ctx context.Context, proj *project.Project) error {
	versions, err := db.MigrationStatus(ctx, proj.DB.DB)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	if len(versions) == 0 {
		fmt.Fprintln(tableOut, "No migrations applied.")
		return nil
	}
	fmt.Fprintf(tableOut, "Applied migrations (%d):\n", len(versions))
	for _, v := range versions {
		fmt.Fprintf(tableOut, "  %s\n", v)
	}
	return nil
}

func migrateRollback(ctx context.Context, proj *project.Project) error {
	if err := db.RollbackMigration(ctx, proj.DB.DB); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	fmt.Fprintln(tableOut, "Migration rolled back.")
	return nil
}
