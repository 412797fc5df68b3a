package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/newhook/ecuci/internal/logparser"
)

var flagLogsMax int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect ecu.test log files",
}

var logsParseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "List the warnings and errors of an ecu.test log",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogsParse,
}

var logsFollowCmd = &cobra.Command{
	Use:   "follow <file>",
	Short: "Print warnings and errors of an ecu.test log as they are written",
	Long: `Follow an ecu.test log file and print every warning and error as soon as
its message is complete. The file may not exist yet. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return logparser.Follow(GetContext(), args[0], func(a logparser.Annotation) {
			fmt.Fprintln(tableOut, severityColor(a.Severity).Sprint(a.String()))
		})
	},
}

func init() {
	logsParseCmd.Flags().IntVar(&flagLogsMax, "max", logparser.DefaultMaxAnnotations, "maximum warnings and errors each, 0 for all")
	logsCmd.AddCommand(logsParseCmd, logsFollowCmd)
}

func runLogsParse(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("cannot read log file: %w", err)
	}
	p := logparser.New(args[0])
	p.MaxAnnotations = flagLogsMax

	annotations := p.Parse()
	if len(annotations) == 0 {
		fmt.Fprintln(tableOut, "No warnings or errors found.")
		return nil
	}
	t := newTable("LINE", "TIME", "CONTEXT", "SEVERITY", "MESSAGE")
	warnings, errs := 0, 0
	for _, a := range annotations {
		switch a.Severity {
		case logparser.Warning:
			warnings++
		case logparser.Error:
			errs++
		}
		t.AppendRow(table.Row{a.LineNumber, a.Timestamp, a.Context, severityColor(a.Severity).Sprint(a.Severity), cell(a.Message)})
	}
	t.AppendFooter(table.Row{"", "", "", "TOTAL", fmt.Sprintf("%d warnings, %d errors", warnings, errs)})
	t.Render()
	return nil
}

func severityColor(s logparser.Severity) text.Colors {
	if s == logparser.Error {
		return text.Colors{text.FgRed}
	}
	return text.Colors{text.FgYellow}
}
