package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	EntryURL         string
	APIURL           string
	ListClass        string
	ButtonSelector   string
	ButtonLabel      string
	Delay            time.Duration
	Timeout          time.Duration // zero disables the client timeout
	MaxRetries       int           // API requests only
	OutputBase       string
	OutputFormat     string // csv, arrow, json, or dual
	UserAgent        string
	DedupeMaxSize    int
	PreviewRows      int
	MetricsAddr      string
	Verbose          bool
	RespectRobotsTxt bool
}

// DefaultConfig returns the settings tuned for geometrics.mtb-news.de.
func DefaultConfig() *Config {
	return &Config{
		EntryURL:       "https://geometrics.mtb-news.de/bikes",
		APIURL:         "https://geometrics.mtb-news.de/api/bikes",
		ListClass:      "mtbnews-geometry__bike-list",
		ButtonSelector: "a.btn.btn-primary",
		ButtonLabel:    "Diese Geometrien untereinander vergleichen",
		// 200ms was observed to trip the site's rate limiting.
		Delay:            300 * time.Millisecond,
		Timeout:          0,
		MaxRetries:       0,
		OutputBase:       "./data/geometrics.mtb-news.de",
		OutputFormat:     "dual",
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		DedupeMaxSize:    0,
		PreviewRows:      5,
		MetricsAddr:      "",
		Verbose:          false,
		RespectRobotsTxt: false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := validateURL("entry URL", c.EntryURL); err != nil {
		return err
	}
	if err := validateURL("API URL", c.APIURL); err != nil {
		return err
	}
	if strings.TrimSpace(c.ListClass) == "" {
		return fmt.Errorf("list class cannot be empty")
	}
	if strings.TrimSpace(c.ButtonSelector) == "" {
		return fmt.Errorf("button selector cannot be empty")
	}
	if strings.TrimSpace(c.ButtonLabel) == "" {
		return fmt.Errorf("button label cannot be empty")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.OutputBase == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "arrow", "json", "dual":
	default:
		return fmt.Errorf("output format must be csv, arrow, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DedupeMaxSize < 0 {
		return fmt.Errorf("dedupe max size cannot be negative")
	}
	if c.PreviewRows < 0 {
		return fmt.Errorf("preview rows cannot be negative")
	}

	return nil
}

// OutputPath returns the output file for an extension such as ".csv".
func (c *Config) OutputPath(ext string) string {
	return c.OutputBase + ext
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
