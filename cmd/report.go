package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/newhook/ecuci/internal/db"
	"github.com/newhook/ecuci/internal/project"
	"github.com/newhook/ecuci/internal/report"
)

var flagReportAnnotations bool

var reportCmd = &cobra.Command{
	Use:   "report [build]",
	Short: "Show the reports published by a build",
	Long: `Show the log and generator reports of a build. The build is selected by
number or id and defaults to the latest build of the project.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().BoolVarP(&flagReportAnnotations, "annotations", "a", false, "list the warnings and errors of every log")
}

// findBuild resolves a build number or id; an empty ref selects the latest
// build.
func findBuild(ctx context.Context, proj *project.Project, ref string) (*db.Build, error) {
	if ref == "" {
		b, err := proj.DB.LatestBuild(ctx, proj.Name())
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, fmt.Errorf("project %s has no builds", proj.Name())
		}
		return b, nil
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		builds, err := proj.DB.ListBuilds(ctx, proj.Name(), 0)
		if err != nil {
			return nil, err
		}
		for _, b := range builds {
			if b.Number == n {
				return b, nil
			}
		}
		return nil, fmt.Errorf("build #%d not found", n)
	}
	b, err := proj.DB.GetBuild(ctx, ref)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("build %s not found", ref)
	}
	return b, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	proj, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer proj.Close()

	var ref string
	if len(args) > 0 {
		ref = args[0]
	}
	b, err := findBuild(ctx, proj, ref)
	if err != nil {
		return err
	}
	logs, err := proj.DB.LoadLogReports(ctx, b.ID)
	if err != nil {
		return err
	}
	gens, err := proj.DB.LoadGeneratorReports(ctx, b.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(tableOut, "Build #%d (%s): %s\n", b.Number, b.ID, resultColor(b.Result).Sprint(b.Result))
	if logs == nil && gens == nil {
		fmt.Fprintln(tableOut, "No reports published.")
		return nil
	}
	if logs != nil {
		renderLogReports(logs)
	}
	if gens != nil {
		renderGeneratorReports(gens)
	}
	return nil
}

func indent(title string, depth int) string {
	if depth == 0 {
		return title
	}
	return strings.Repeat("  ", depth-1) + "└ " + title
}

func archiveLevel(projectLevel bool) string {
	if projectLevel {
		return "project"
	}
	return "build"
}

func renderLogReports(action *report.LogAction) {
	t := newTable("LOG", "FILE", "SIZE", "WARNINGS", "ERRORS")
	t.SetTitle("ecu.test logs (%s archive)", archiveLevel(action.ProjectLevel))
	for _, root := range action.Reports {
		report.Walk(root, func(r *report.LogReport, depth int) {
			t.AppendRow(table.Row{indent(r.Title, depth), cell(r.FileName), r.FileSize, r.WarningLogCount, r.ErrorLogCount})
			if !flagReportAnnotations {
				return
			}
			for _, a := range r.Logs {
				msg := wordwrap.String(fmt.Sprintf("%d: %s", a.LineNumber, a.Message), cellWidth)
				t.AppendRow(table.Row{"", severityColor(a.Severity).Sprint(msg), "", "", ""})
			}
		})
	}
	t.AppendFooter(table.Row{"TOTAL", "", "", action.TotalWarningCount(), action.TotalErrorCount()})
	t.Render()
}

func renderGeneratorReports(action *report.GeneratorAction) {
	t := newTable("REPORT", "DIRECTORY", "SIZE")
	t.SetTitle("Generator reports (%s archive)", archiveLevel(action.ProjectLevel))
	for _, root := range action.Reports {
		report.Walk(root, func(r *report.GeneratorReport, depth int) {
			t.AppendRow(table.Row{indent(r.Title, depth), cell(r.FileName), r.FileSize})
		})
	}
	t.Render()
}
