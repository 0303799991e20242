package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
)

var (
	bold  = color.New(color.Bold)
	faint = color.New(color.Faint)
	green = color.New(color.FgGreen)
)

// newTable starts a table with a bold header row.
func newTable(headers ...string) *uitable.Table {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = bold.Sprint(h)
	}
	tbl.AddRow(row...)
	return tbl
}

func printTable(w io.Writer, tbl *uitable.Table) {
	_, _ = fmt.Fprintln(w, tbl)
}

func mark(done bool) string {
	if done {
		return green.Sprint("[x]")
	}
	return "[ ]"
}

func empty(w io.Writer, what string) {
	_, _ = fmt.Fprintln(w, faint.Sprintf("No %s yet", what))
}
