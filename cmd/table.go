package cmd

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/muesli/reflow/truncate"

	"github.com/newhook/ecuci/internal/build"
)

// cellWidth bounds free text columns such as log messages.
const cellWidth = 80

var tableOut io.Writer = os.Stdout

func newTable(headers ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(tableOut)
	t.SetStyle(table.StyleRounded)
	row := make(table.Row, len(headers))
	for i, h := range headers {
		row[i] = text.FgHiCyan.Sprint(h)
	}
	t.AppendHeader(row)
	return t
}

// cell shortens s to a single table line.
func cell(s string) string {
	return truncate.StringWithTail(s, cellWidth, "...")
}

func resultColor(r build.Result) text.Colors {
	switch r {
	case build.Success:
		return text.Colors{text.FgGreen}
	case build.Unstable:
		return text.Colors{text.FgYellow}
	case build.Failure:
		return text.Colors{text.FgRed, text.Bold}
	default:
		return text.Colors{text.FgHiBlack}
	}
}
