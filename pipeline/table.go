package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aluiziolira/go-scrape-geometry/models"
)

// Table accumulates rows column by column under models.Schema.
type Table struct {
	columns [][]any
	rows    int
}

// NewTable returns an empty table with one column per schema entry.
func NewTable() *Table {
	return &Table{columns: make([][]any, len(models.Schema))}
}

// Append adds a row to the end of every column.
func (t *Table) Append(row *models.Row) error {
	return t.AppendCells(row.Cells())
}

// AppendCells adds one row of cells, checking each against its column type.
func (t *Table) AppendCells(cells []any) error {
	if len(cells) != len(models.Schema) {
		return fmt.Errorf("row has %d cells, schema has %d columns", len(cells), len(models.Schema))
	}
	for i, cell := range cells {
		if !cellMatches(models.Schema[i].Type, cell) {
			return fmt.Errorf("column %q: %T does not match type %s", models.Schema[i].Name, cell, models.Schema[i].Type)
		}
	}
	for i, cell := range cells {
		t.columns[i] = append(t.columns[i], cell)
	}
	t.rows++
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// Column returns the values of column i. The slice must not be modified.
func (t *Table) Column(i int) []any {
	return t.columns[i]
}

// Row returns the cells of row i in schema order.
func (t *Table) Row(i int) []any {
	out := make([]any, len(t.columns))
	for c := range t.columns {
		out[c] = t.columns[c][i]
	}
	return out
}

// Records returns every row as formatted strings, as written to CSV.
func (t *Table) Records() [][]string {
	out := make([][]string, t.rows)
	for i := range out {
		record := make([]string, len(t.columns))
		for c := range t.columns {
			record[c] = FormatCell(t.columns[c][i])
		}
		out[i] = record
	}
	return out
}

func cellMatches(typ models.ColumnType, cell any) bool {
	if cell == nil {
		return true
	}
	switch typ {
	case models.TypeText:
		_, ok := cell.(string)
		return ok
	case models.TypeInt32:
		_, ok := cell.(int32)
		return ok
	case models.TypeBool:
		_, ok := cell.(bool)
		return ok
	case models.TypeFloat32:
		_, ok := cell.(float32)
		return ok
	}
	return false
}

// FormatCell renders a cell the way it appears in the CSV output. Nulls are empty.
func FormatCell(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case bool:
		return strconv.FormatBool(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

// ParseCell converts CSV text back into a typed cell. Empty text is null.
func ParseCell(typ models.ColumnType, text string) (any, error) {
	if text == "" {
		return nil, nil
	}
	switch typ {
	case models.TypeText:
		return text, nil
	case models.TypeInt32:
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	case models.TypeBool:
		return strconv.ParseBool(text)
	case models.TypeFloat32:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, err
		}
		return float32(f), nil
	}
	return nil, fmt.Errorf("unknown column type %d", typ)
}

// ReadCSV parses a semicolon-delimited export back into a table.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = len(models.Schema)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, name := range models.ColumnNames() {
		if header[i] != name {
			return nil, fmt.Errorf("csv header column %d = %q, want %q", i, header[i], name)
		}
	}

	table := NewTable()
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		cells := make([]any, len(record))
		for i, text := range record {
			cell, err := ParseCell(models.Schema[i].Type, text)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, models.Schema[i].Name, err)
			}
			cells[i] = cell
		}
		if err := table.AppendCells(cells); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return table, nil
}
