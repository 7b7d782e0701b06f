package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-geometry/config"
	"github.com/aluiziolira/go-scrape-geometry/models"
	"github.com/aluiziolira/go-scrape-geometry/parser"
	"github.com/aluiziolira/go-scrape-geometry/pipeline"
	"github.com/go-resty/resty/v2"
	"github.com/gocolly/colly/v2"
)

// Request context keys shared between Request calls and the HTML callbacks.
const (
	ctxKind     = "kind"
	ctxStart    = "start"
	ctxListings = "listings"
	ctxButton   = "button"

	kindIndex  = "index"
	kindDetail = "detail"
	kindAPI    = "api"
)

type comparisonButton struct {
	Text string
	Href string
}

// Scraper walks the bike index, resolves each bike's comparison link and
// pulls the variant geometry from the JSON API.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	api       *resty.Client
	Metrics   *Metrics

	requestCount int64
	errorCount   int64

	mu            sync.Mutex
	failedURLs    []string
	errorsByType  map[string]int
	skipsByReason map[string]int
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	parsed, err := url.Parse(cfg.EntryURL)
	if err != nil {
		return nil, fmt.Errorf("parse entry url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("entry url must include a host")
	}

	// Sync mode: bikes are visited one at a time behind the fixed delay.
	// Detail links are followed wherever the index points, and a bike listed
	// twice is fetched twice.
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
	)
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	s := &Scraper{
		cfg:           cfg,
		collector:     collector,
		api:           newAPIClient(cfg),
		Metrics:       NewMetrics(),
		errorsByType:  make(map[string]int),
		skipsByReason: make(map[string]int),
	}
	s.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	s.configureHandlers()
	s.configureAPIHooks()
	return s, nil
}

func newAPIClient(cfg *config.Config) *resty.Client {
	client := resty.New()
	if cfg.Delay > 0 {
		client.SetRetryWaitTime(cfg.Delay)
	}
	return client.
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
}

// WithTransport routes both the HTML collector and the API client through rt.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
	s.api.SetTransport(rt)
}

// Run discovers every bike on the index and streams its variant rows through
// the pipeline. Bikes that cannot be resolved are skipped; an unreachable
// index, a malformed variant or an unknown category aborts the run.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	listings, err := s.Discover(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("bike index loaded", slog.Int("bikes", len(listings)))

	variantCount := 0
	for i, listing := range listings {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("crawl cancelled: %w", err)
		}
		slog.Info("scraping bike",
			slog.Int("position", i+1),
			slog.Int("total", len(listings)),
			slog.String("name", listing.Name),
			slog.String("url", listing.URL),
		)

		rows, err := s.scrapeListing(ctx, listing)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("crawl cancelled: %w", ctx.Err())
			}
			var skipped *SkipError
			if errors.As(err, &skipped) {
				s.recordSkip(skipped.Reason)
				slog.Warn("skipping bike",
					slog.String("url", listing.URL),
					slog.String("reason", skipped.Reason),
					slog.Any("error", skipped.Err),
				)
				continue
			}
			return nil, fmt.Errorf("scrape %s: %w", listing.URL, err)
		}

		variantCount += len(rows)
		s.Metrics.AddRows(len(rows))
		if err := p.Process(rows...); err != nil {
			return nil, fmt.Errorf("pipeline process: %w", err)
		}
	}

	result := &models.ScrapeResult{
		StartTime:     start,
		EndTime:       time.Now(),
		ListingCount:  len(listings),
		VariantCount:  variantCount,
		ErrorCount:    int(atomic.LoadInt64(&s.errorCount)),
		ErrorsByType:  s.snapshotErrors(),
		SkipsByReason: s.snapshotSkips(),
		FailedURLs:    s.snapshotFailedURLs(),
		RequestCount:  int(atomic.LoadInt64(&s.requestCount)),
	}
	for _, n := range result.SkipsByReason {
		result.SkippedCount += n
	}
	if metrics := p.GetMetrics(); metrics != nil {
		if processed, ok := metrics["processed_rows"].(int64); ok {
			result.RowCount = int(processed)
		}
	}
	return result, nil
}

// Discover fetches the index page and returns the bike links in document order.
func (s *Scraper) Discover(ctx context.Context) ([]models.BikeListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	listings := &[]models.BikeListing{}
	rctx := colly.NewContext()
	rctx.Put(ctxKind, kindIndex)
	rctx.Put(ctxListings, listings)

	if err := s.collector.Request(http.MethodGet, s.cfg.EntryURL, nil, rctx, nil); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrIndexFetch, s.cfg.EntryURL, err)
	}
	return *listings, nil
}

// ResolveDetail fetches a bike's detail page and returns the href of its
// comparison link.
func (s *Scraper) ResolveDetail(ctx context.Context, listing models.BikeListing) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rctx := colly.NewContext()
	rctx.Put(ctxKind, kindDetail)

	if err := s.collector.Request(http.MethodGet, listing.URL, nil, rctx, nil); err != nil {
		return "", skip(SkipDetailFetch, err)
	}

	button, ok := rctx.GetAny(ctxButton).(comparisonButton)
	if !ok {
		return "", skip(SkipMissingButton, fmt.Errorf("no %q element on page", s.cfg.ButtonSelector))
	}
	if want := parser.NormalizeText(s.cfg.ButtonLabel); button.Text != want {
		return "", skip(SkipButtonMismatch, fmt.Errorf("button text %q, want %q", button.Text, want))
	}
	if button.Href == "" {
		return "", skip(SkipBadLink, fmt.Errorf("comparison button has no href"))
	}
	return button.Href, nil
}

// FetchVariants requests the comparison API for the comma-separated variant
// IDs. Transport failures, non-2xx responses and responses without variants
// are returned as *SkipError; malformed variants as *parser.SchemaError.
func (s *Scraper) FetchVariants(ctx context.Context, ids string) ([]models.Variant, error) {
	apiURL := fmt.Sprintf("%s?variants=%s", s.cfg.APIURL, ids)

	resp, err := s.api.R().SetContext(ctx).Get(apiURL)
	if err != nil {
		s.recordError(err, 0, apiURL)
		return nil, skip(SkipAPIFailed, err)
	}
	if !resp.IsSuccess() {
		err := fmt.Errorf("api responded %s", resp.Status())
		s.recordError(err, resp.StatusCode(), apiURL)
		return nil, skip(SkipNoVariants, err)
	}

	variants, err := parser.ParseVariants(resp.Body())
	if err != nil {
		if errors.Is(err, parser.ErrNoVariants) {
			return nil, skip(SkipNoVariants, err)
		}
		return nil, fmt.Errorf("api %s: %w", apiURL, err)
	}
	return variants, nil
}

func (s *Scraper) scrapeListing(ctx context.Context, listing models.BikeListing) ([]*models.Row, error) {
	tableURL, err := s.ResolveDetail(ctx, listing)
	if err != nil {
		return nil, err
	}
	ids, err := parser.VariantIDs(tableURL)
	if err != nil {
		return nil, skip(SkipBadLink, err)
	}
	slog.Info("comparison resolved",
		slog.String("bike_url", listing.URL),
		slog.String("table_url", tableURL),
		slog.String("api_url", fmt.Sprintf("%s?variants=%s", s.cfg.APIURL, ids)),
	)

	variants, err := s.FetchVariants(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]*models.Row, 0, len(variants))
	for i := range variants {
		row, err := parser.VariantToRow(&variants[i])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Scraper) configureHandlers() {
	s.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxStart, time.Now())
		atomic.AddInt64(&s.requestCount, 1)
		s.Metrics.IncRequest(r.Ctx.Get(ctxKind))
	})

	s.collector.OnResponse(func(r *colly.Response) {
		if start, ok := r.Request.Ctx.GetAny(ctxStart).(time.Time); ok {
			s.Metrics.ObserveDuration(r.Ctx.Get(ctxKind), time.Since(start))
		}
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		requestURL := ""
		if r != nil {
			statusCode = r.StatusCode
			if r.Request != nil && r.Request.URL != nil {
				requestURL = r.Request.URL.String()
			}
		}
		s.recordError(err, statusCode, requestURL)
	})

	s.collector.OnHTML("ul."+s.cfg.ListClass, func(e *colly.HTMLElement) {
		listings, ok := e.Request.Ctx.GetAny(ctxListings).(*[]models.BikeListing)
		if !ok {
			return
		}
		e.DOM.Find("li").Each(func(_ int, li *goquery.Selection) {
			link := li.Find("a").First()
			href, ok := link.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return
			}
			abs := e.Request.AbsoluteURL(strings.TrimSpace(href))
			if abs == "" {
				return
			}
			*listings = append(*listings, models.BikeListing{
				Name: parser.NormalizeText(link.Text()),
				URL:  abs,
			})
		})
	})

	// Only the first matching button on a detail page counts.
	s.collector.OnHTML(s.cfg.ButtonSelector, func(e *colly.HTMLElement) {
		if e.Request.Ctx.Get(ctxKind) != kindDetail || e.Index != 0 {
			return
		}
		href := strings.TrimSpace(e.Attr("href"))
		if href != "" {
			href = e.Request.AbsoluteURL(href)
		}
		e.Request.Ctx.Put(ctxButton, comparisonButton{
			Text: parser.NormalizeText(e.Text),
			Href: href,
		})
	})
}

func (s *Scraper) configureAPIHooks() {
	s.api.OnBeforeRequest(func(_ *resty.Client, _ *resty.Request) error {
		atomic.AddInt64(&s.requestCount, 1)
		s.Metrics.IncRequest(kindAPI)
		return nil
	})
	s.api.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		s.Metrics.ObserveDuration(kindAPI, r.Time())
		return nil
	})
	s.api.AddRetryHook(func(r *resty.Response, err error) {
		s.Metrics.IncRetries()
		requestURL := ""
		if r != nil && r.Request != nil {
			requestURL = r.Request.URL
		}
		slog.Debug("retrying api request", slog.String("url", requestURL), slog.Any("error", err))
	})
}

func (s *Scraper) recordError(err error, statusCode int, requestURL string) {
	atomic.AddInt64(&s.errorCount, 1)
	category := errorTypeLabel(classifyError(err, statusCode))

	s.mu.Lock()
	s.errorsByType[category]++
	if requestURL != "" {
		s.failedURLs = append(s.failedURLs, requestURL)
	}
	s.mu.Unlock()

	slog.Error("request error",
		slog.String("url", requestURL),
		slog.Int("status", statusCode),
		slog.String("category", category),
		slog.Any("error", err),
	)
	s.Metrics.IncError(category)
}

func (s *Scraper) recordSkip(reason string) {
	s.mu.Lock()
	s.skipsByReason[reason]++
	s.mu.Unlock()
	s.Metrics.IncSkipped(reason)
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

func (s *Scraper) snapshotSkips() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.skipsByReason))
	for k, v := range s.skipsByReason {
		out[k] = v
	}
	return out
}
