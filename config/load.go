package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GEOMETRICS_DELAY.
const EnvPrefix = "GEOMETRICS"

const dotEnvFile = ".env"

// RegisterFlags declares one flag per configuration key, defaulting to DefaultConfig.
func RegisterFlags(flags *pflag.FlagSet) {
	d := DefaultConfig()
	flags.String("config", "", "Optional YAML config file")
	flags.String("entry-url", d.EntryURL, "Index page listing all bikes")
	flags.String("api-url", d.APIURL, "Comparison API endpoint")
	flags.String("list-class", d.ListClass, "CSS class of the per-letter bike lists")
	flags.String("button-selector", d.ButtonSelector, "Selector of the comparison link on detail pages")
	flags.String("button-label", d.ButtonLabel, "Expected text of the comparison link")
	flags.Duration("delay", d.Delay, "Fixed delay between page requests")
	flags.Duration("timeout", d.Timeout, "HTTP timeout (0 disables)")
	flags.Int("max-retries", d.MaxRetries, "Retry attempts for API requests")
	flags.StringP("output", "o", d.OutputBase, "Output path without extension")
	flags.String("format", d.OutputFormat, "Output format: csv, arrow, json, or dual")
	flags.String("user-agent", d.UserAgent, "User-Agent header")
	flags.Bool("respect-robots", d.RespectRobotsTxt, "Respect robots.txt directives")
	flags.Int("dedupe-max-size", d.DedupeMaxSize, "Drop repeated variant IDs, remembering up to this many (0 keeps duplicates)")
	flags.Int("preview-rows", d.PreviewRows, "Rows printed after export (0 disables)")
	flags.String("metrics-addr", d.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolP("verbose", "v", d.Verbose, "Enable verbose logging")
}

// Load resolves the configuration from explicitly set flags, GEOMETRICS_*
// environment variables, an optional config file, GEOMETRICS_* entries of a
// .env file in the working directory and the built-in defaults, in that order
// of precedence.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	} else {
		setDefaults(v)
	}
	if err := applyDotEnv(v, dotEnvFile); err != nil {
		return nil, err
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		EntryURL:         v.GetString("entry-url"),
		APIURL:           v.GetString("api-url"),
		ListClass:        v.GetString("list-class"),
		ButtonSelector:   v.GetString("button-selector"),
		ButtonLabel:      v.GetString("button-label"),
		Delay:            v.GetDuration("delay"),
		Timeout:          v.GetDuration("timeout"),
		MaxRetries:       v.GetInt("max-retries"),
		OutputBase:       v.GetString("output"),
		OutputFormat:     strings.ToLower(v.GetString("format")),
		UserAgent:        v.GetString("user-agent"),
		DedupeMaxSize:    v.GetInt("dedupe-max-size"),
		PreviewRows:      v.GetInt("preview-rows"),
		MetricsAddr:      v.GetString("metrics-addr"),
		Verbose:          v.GetBool("verbose"),
		RespectRobotsTxt: v.GetBool("respect-robots"),
	}
	return cfg, nil
}

// applyDotEnv registers GEOMETRICS_* entries of path as defaults so they only
// win over the built-in values, never over the environment or a config file.
func applyDotEnv(v *viper.Viper, path string) error {
	entries, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	prefix := EnvPrefix + "_"
	for name, value := range entries {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, prefix)), "_", "-")
		v.SetDefault(key, value)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("entry-url", d.EntryURL)
	v.SetDefault("api-url", d.APIURL)
	v.SetDefault("list-class", d.ListClass)
	v.SetDefault("button-selector", d.ButtonSelector)
	v.SetDefault("button-label", d.ButtonLabel)
	v.SetDefault("delay", d.Delay)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("max-retries", d.MaxRetries)
	v.SetDefault("output", d.OutputBase)
	v.SetDefault("format", d.OutputFormat)
	v.SetDefault("user-agent", d.UserAgent)
	v.SetDefault("respect-robots", d.RespectRobotsTxt)
	v.SetDefault("dedupe-max-size", d.DedupeMaxSize)
	v.SetDefault("preview-rows", d.PreviewRows)
	v.SetDefault("metrics-addr", d.MetricsAddr)
	v.SetDefault("verbose", d.Verbose)
}
