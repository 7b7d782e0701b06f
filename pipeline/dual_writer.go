// Package pipeline provides dual output writer for CSV and Arrow formats.
package pipeline

import (
	"fmt"
	"sync"
)

// DualWriter outputs the same table to CSV and Arrow.
type DualWriter struct {
	csvWriter   *CSVWriter
	arrowWriter *ArrowWriter
	mu          sync.Mutex
}

// NewDualWriter creates a new dual writer for both CSV and Arrow output
func NewDualWriter(csvFilename, arrowFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}

	arrowWriter, err := NewArrowWriter(arrowFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow writer: %w", err)
	}

	return &DualWriter{
		csvWriter:   csvWriter,
		arrowWriter: arrowWriter,
	}, nil
}

// Write writes the table to both formats
func (dw *DualWriter) Write(t *Table) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.csvWriter.Write(t); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}

	if err := dw.arrowWriter.Write(t); err != nil {
		return fmt.Errorf("Arrow write failed: %w", err)
	}

	return nil
}

// Close closes both writers
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error

	if err := dw.csvWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("CSV close failed: %w", err))
	}

	if err := dw.arrowWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("Arrow close failed: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors: %v", errs)
	}

	return nil
}

// Validate validates both output files
func (dw *DualWriter) Validate() error {
	var errs []error

	if err := dw.csvWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("CSV validation failed: %w", err))
	}

	if err := dw.arrowWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("Arrow validation failed: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %v", errs)
	}

	return nil
}
