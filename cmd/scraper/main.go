package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-geometry/config"
	"github.com/aluiziolira/go-scrape-geometry/models"
	"github.com/aluiziolira/go-scrape-geometry/pipeline"
	"github.com/aluiziolira/go-scrape-geometry/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scraper",
	Short: "Scrape bike geometry data from geometrics.mtb-news.de",
	Long: "Walks the geometrics.mtb-news.de bike index, resolves every bike's comparison table " +
		"and exports all variants as a semicolon-delimited CSV and a zstd-compressed Arrow file.",
	SilenceUsage: true,
	RunE:         runScrape,
}

func init() {
	config.RegisterFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return err
	}

	slog.Info("starting scrape",
		slog.String("entry_url", cfg.EntryURL),
		slog.String("api_url", cfg.APIURL),
		slog.Duration("delay", cfg.Delay),
		slog.String("format", cfg.OutputFormat),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		return err
	}

	writer, outputs, err := createWriter(cfg)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, stopping after the current bike")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	p, err := pipeline.NewPipeline(writer, cfg)
	if err != nil {
		slog.Error("creating pipeline", slog.Any("error", err))
		return err
	}
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	result, err := s.Run(ctx, p)
	if err != nil {
		// Nothing has been written yet; leave any previous export untouched.
		slog.Error("scraping failed", slog.Any("error", err))
		return err
	}

	if err := p.Close(); err != nil {
		slog.Error("writing output failed", slog.Any("error", err))
		return err
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		return err
	}

	pipeline.RenderPreview(os.Stdout, p.Table(), cfg.PreviewRows)
	printSummary(os.Stdout, result, time.Since(startTime), outputs, p.GetMetrics())
	return nil
}

func createWriter(cfg *config.Config) (pipeline.OutputWriter, []string, error) {
	switch cfg.OutputFormat {
	case "csv":
		path := cfg.OutputPath(".csv")
		w, err := pipeline.NewCSVWriter(path)
		return w, []string{path}, err
	case "arrow":
		path := cfg.OutputPath(".arrow")
		w, err := pipeline.NewArrowWriter(path)
		return w, []string{path}, err
	case "json":
		path := cfg.OutputPath(".jsonl")
		w, err := pipeline.NewJSONWriter(path)
		return w, []string{path}, err
	case "dual":
		csvPath, arrowPath := cfg.OutputPath(".csv"), cfg.OutputPath(".arrow")
		w, err := pipeline.NewDualWriter(csvPath, arrowPath)
		return w, []string{csvPath, arrowPath}, err
	default:
		return nil, nil, fmt.Errorf("unsupported format: %s", cfg.OutputFormat)
	}
}

func printSummary(w io.Writer, result *models.ScrapeResult, duration time.Duration, outputs []string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Scrape complete")

	fmt.Fprintf(w, "  Bikes found:   %d\n", result.ListingCount)
	fmt.Fprintf(w, "  Variants:      %d\n", result.VariantCount)
	fmt.Fprintf(w, "  Rows written:  %d\n", result.RowCount)
	fmt.Fprintf(w, "  Skipped bikes: %d\n", result.SkippedCount)
	if len(result.SkipsByReason) > 0 {
		fmt.Fprintf(w, "  Skip reasons:  %v\n", result.SkipsByReason)
	}
	fmt.Fprintf(w, "  Requests:      %d\n", result.RequestCount)
	fmt.Fprintf(w, "  Errors:        %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(w, "  Error types:   %v\n", result.ErrorsByType)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Fprintf(w, "  Validation:    %v\n", valErrors)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	for _, path := range outputs {
		fmt.Fprintf(w, "  Output file:   %s\n", path)
	}
	fmt.Fprintln(w, separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
