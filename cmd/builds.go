package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var flagBuildsLimit int

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "List the builds of the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := GetContext()
		proj, err := openProject(ctx)
		if err != nil {
			return err
		}
		defer proj.Close()

		builds, err := proj.DB.ListBuilds(ctx, proj.Name(), flagBuildsLimit)
		if err != nil {
			return err
		}
		if len(builds) == 0 {
			fmt.Fprintln(tableOut, "No builds yet.")
			return nil
		}

		t := newTable("#", "ID", "RESULT", "STARTED", "DURATION")
		for _, b := range builds {
			duration := "running"
			if b.FinishedAt != nil {
				duration = b.FinishedAt.Sub(b.StartedAt).Round(time.Second).String()
			}
			t.AppendRow(table.Row{
				b.Number,
				b.ID,
				resultColor(b.Result).Sprint(b.Result),
				b.StartedAt.Local().Format(time.DateTime),
				duration,
			})
		}
		t.Render()
		return nil
	},
}

func init() {
	buildsCmd.Flags().IntVarP(&flagBuildsLimit, "limit", "n", 20, "number of builds to list, 0 for all")
}
