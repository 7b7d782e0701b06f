package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/go-scrape-geometry/models"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// errNotWritten is returned by Validate before any table was written.
var errNotWritten = errors.New("output not written")

// CSVWriter writes the table as semicolon-delimited text. The file is only
// created on Write, so an aborted run leaves earlier output untouched.
type CSVWriter struct {
	filename string
	file     *os.File
	mu       sync.Mutex
}

// NewCSVWriter prepares a CSV writer for filename.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return &CSVWriter{filename: filename}, nil
}

// Write creates the file and writes the header and every row.
func (cw *CSVWriter) Write(t *Table) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.file != nil {
		return fmt.Errorf("csv %s already written", cw.filename)
	}
	f, err := os.Create(cw.filename)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	cw.file = f

	writer := csv.NewWriter(f)
	writer.Comma = ';'
	if err := writer.Write(models.ColumnNames()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := writer.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write csv records: %w", err)
	}
	return nil
}

// Close closes the file handle if one was opened.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.file == nil {
		return nil
	}
	return cw.file.Close()
}

// Validate ensures the file was written and has content.
func (cw *CSVWriter) Validate() error {
	return validateFile(cw.filename, cw.file != nil)
}

// ArrowWriter writes the table as a zstd-compressed Arrow IPC file.
type ArrowWriter struct {
	filename string
	file     *os.File
	mem      memory.Allocator
	mu       sync.Mutex
}

// NewArrowWriter prepares an Arrow IPC writer for filename.
func NewArrowWriter(filename string) (*ArrowWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return &ArrowWriter{filename: filename, mem: memory.NewGoAllocator()}, nil
}

// ArrowSchema maps models.Schema onto Arrow types. Every column is nullable.
func ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(models.Schema))
	for i, col := range models.Schema {
		var typ arrow.DataType
		switch col.Type {
		case models.TypeText:
			typ = arrow.BinaryTypes.String
		case models.TypeInt32:
			typ = arrow.PrimitiveTypes.Int32
		case models.TypeBool:
			typ = arrow.FixedWidthTypes.Boolean
		case models.TypeFloat32:
			typ = arrow.PrimitiveTypes.Float32
		}
		fields[i] = arrow.Field{Name: col.Name, Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// Write creates the file and writes the table as a single record batch.
func (aw *ArrowWriter) Write(t *Table) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if aw.file != nil {
		return fmt.Errorf("arrow %s already written", aw.filename)
	}

	schema := ArrowSchema()
	builder := array.NewRecordBuilder(aw.mem, schema)
	defer builder.Release()

	for c := range models.Schema {
		if err := appendColumn(builder.Field(c), t.Column(c)); err != nil {
			return fmt.Errorf("column %q: %w", models.Schema[c].Name, err)
		}
	}
	record := builder.NewRecord()
	defer record.Release()

	f, err := os.Create(aw.filename)
	if err != nil {
		return fmt.Errorf("create arrow file: %w", err)
	}
	aw.file = f

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(aw.mem), ipc.WithZstd())
	if err != nil {
		return fmt.Errorf("open arrow writer: %w", err)
	}
	if err := w.Write(record); err != nil {
		w.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish arrow file: %w", err)
	}
	return nil
}

func appendColumn(b array.Builder, values []any) error {
	for _, v := range values {
		if v == nil {
			b.AppendNull()
			continue
		}
		switch fb := b.(type) {
		case *array.StringBuilder:
			fb.Append(v.(string))
		case *array.Int32Builder:
			fb.Append(v.(int32))
		case *array.BooleanBuilder:
			fb.Append(v.(bool))
		case *array.Float32Builder:
			fb.Append(v.(float32))
		default:
			return fmt.Errorf("unsupported builder %T", b)
		}
	}
	return nil
}

// Close closes the file handle if one was opened.
func (aw *ArrowWriter) Close() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if aw.file == nil {
		return nil
	}
	if err := aw.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

// Validate ensures the file was written and has content.
func (aw *ArrowWriter) Validate() error {
	return validateFile(aw.filename, aw.file != nil)
}

// JSONWriter writes newline-delimited JSON objects keyed by column name.
type JSONWriter struct {
	filename string
	file     *os.File
	mu       sync.Mutex
}

// NewJSONWriter prepares a JSONL writer for filename.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return &JSONWriter{filename: filename}, nil
}

// Write creates the file and encodes one object per row.
func (jw *JSONWriter) Write(t *Table) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.file != nil {
		return fmt.Errorf("json %s already written", jw.filename)
	}
	f, err := os.Create(jw.filename)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	jw.file = f

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	names := models.ColumnNames()
	for i := 0; i < t.Len(); i++ {
		obj := make(map[string]any, len(names))
		for c, cell := range t.Row(i) {
			obj[names[c]] = cell
		}
		if err := encoder.Encode(obj); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	if err := buffer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close closes the file handle if one was opened.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.file == nil {
		return nil
	}
	return jw.file.Close()
}

// Validate ensures the file was written. An empty table yields an empty file.
func (jw *JSONWriter) Validate() error {
	if jw.file == nil {
		return fmt.Errorf("json %s: %w", jw.filename, errNotWritten)
	}
	if _, err := os.Stat(jw.filename); err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	return nil
}

func validateFile(filename string, written bool) error {
	if !written {
		return fmt.Errorf("%s: %w", filename, errNotWritten)
	}
	info, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("stat %s: %w", filename, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s is empty", filename)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
