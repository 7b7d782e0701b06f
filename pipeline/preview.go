package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/aluiziolira/go-scrape-geometry/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderPreview prints the first n rows and the column types of t.
func RenderPreview(w io.Writer, t *Table, n int) {
	if n <= 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	style := table.StyleRounded
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)

	header := make(table.Row, len(models.Schema))
	types := make(table.Row, len(models.Schema))
	for i, col := range models.Schema {
		header[i] = col.Name
		types[i] = col.Type.String()
	}
	tw.AppendHeader(header)
	tw.AppendRow(types)
	tw.AppendSeparator()

	rows := min(n, t.Len())
	for i := 0; i < rows; i++ {
		cells := t.Row(i)
		row := make(table.Row, len(cells))
		for c, cell := range cells {
			if cell == nil {
				row[c] = "null"
				continue
			}
			row[c] = FormatCell(cell)
		}
		tw.AppendRow(row)
	}
	tw.SetCaption("shape: (%d, %d)", t.Len(), len(models.Schema))
	tw.Render()

	dtypes := make([]string, len(models.Schema))
	for i, col := range models.Schema {
		dtypes[i] = col.Type.String()
	}
	fmt.Fprintf(w, "dtypes: [%s]\n", strings.Join(dtypes, ", "))
}
