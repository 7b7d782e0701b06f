package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-geometry/config"
	"github.com/aluiziolira/go-scrape-geometry/models"
	"github.com/aluiziolira/go-scrape-geometry/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(t *Table) error
	Close() error
	Validate() error
}

// Pipeline validates and de-duplicates rows, accumulates them in a Table and
// hands the table to the writer once on Close.
type Pipeline struct {
	writer OutputWriter
	table  *Table
	seen   *lru.Cache[int64, struct{}]

	metrics *metrics

	mu     sync.Mutex // guards table/closed/err
	closed bool
	err    error

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline. When cfg.DedupeMaxSize is positive it drops
// rows whose variant ID was already seen, remembering up to that many IDs;
// zero keeps every row.
func NewPipeline(writer OutputWriter, cfg *config.Config) (*Pipeline, error) {
	if cfg.DedupeMaxSize < 0 {
		return nil, fmt.Errorf("create dedupe cache: negative size %d", cfg.DedupeMaxSize)
	}
	var seen *lru.Cache[int64, struct{}]
	if cfg.DedupeMaxSize > 0 {
		var err error
		seen, err = lru.New[int64, struct{}](cfg.DedupeMaxSize)
		if err != nil {
			return nil, fmt.Errorf("create dedupe cache: %w", err)
		}
	}
	return &Pipeline{
		writer:   writer,
		table:    NewTable(),
		seen:     seen,
		metrics:  newMetrics(),
		shutdown: make(chan struct{}),
	}, nil
}

// Process appends rows to the table.
func (p *Pipeline) Process(rows ...*models.Row) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	if p.closed {
		return ErrPipelineClosed
	}

	for _, row := range rows {
		if row == nil {
			continue
		}
		if err := p.prepare(row); err != nil {
			p.metrics.addValidation(err.Error())
			continue
		}
		if err := p.table.Append(row); err != nil {
			p.err = fmt.Errorf("append row: %w", err)
			return p.err
		}
		p.metrics.incrementProcessed()
	}
	return nil
}

// Close writes the accumulated table and prevents more submissions.
// It is safe to call more than once; only the first call writes.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.err
	}
	p.closed = true
	p.signalShutdown()

	if p.err != nil {
		return p.err
	}
	if err := p.writer.Write(p.table); err != nil {
		p.err = fmt.Errorf("write table: %w", err)
	}
	return p.err
}

// Table returns the accumulated table.
func (p *Pipeline) Table() *Table {
	return p.table
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs until Close.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				processed := metrics["processed_rows"].(int64)
				validation := metrics["validation_errors"].(map[string]int)
				slog.Info("pipeline progress",
					slog.Int64("rows", processed),
					slog.Int("validation_errors", len(validation)),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

var (
	errInvalidRecord    = errors.New("invalid_record")
	errDuplicateVariant = errors.New("duplicate_variant")
)

func (p *Pipeline) prepare(row *models.Row) error {
	if err := parser.ValidateRow(row); err != nil {
		slog.Debug("dropping invalid row", slog.Any("error", err))
		return errInvalidRecord
	}

	// Variants without an ID cannot be matched against each other.
	if p.seen == nil || row.VariantID == 0 {
		return nil
	}
	if p.seen.Contains(row.VariantID) {
		slog.Debug("dropping duplicate variant", slog.Int64("variant_id", row.VariantID))
		return errDuplicateVariant
	}
	p.seen.Add(row.VariantID, struct{}{})
	return nil
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() *metrics {
	return &metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_rows":    m.processed,
		"validation_errors": copyValidation,
	}
}
