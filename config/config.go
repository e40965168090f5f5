// Package config layers command-line flags, SITETREE_* environment variables
// and an optional YAML file into the settings of a sitetree run.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lukemcguire/sitetree/crawler"
	"github.com/lukemcguire/sitetree/logging"
)

// AppName names the per-user config directory.
const AppName = "sitetree"

// EnvPrefix is prepended to every environment variable name, e.g.
// SITETREE_LOG_LEVEL for --log-level.
const EnvPrefix = "SITETREE"

// Output formats accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ErrInvalidFormat is returned for an unknown output format.
var ErrInvalidFormat = errors.New("invalid output format")

// Config is the merged configuration of a run. Keys match the long flag
// names; in YAML and the environment they are spelled the same way
// (user-agent, SITETREE_USER_AGENT).
type Config struct {
	URL         string        `mapstructure:"url"`
	Depth       int           `mapstructure:"depth"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Rate        float64       `mapstructure:"rate"`
	UserAgent   string        `mapstructure:"user-agent"`
	StrictHost  bool          `mapstructure:"strict-host"`
	Bloom       bool          `mapstructure:"bloom"`
	Format      string        `mapstructure:"format"`
	TUI         bool          `mapstructure:"tui"`
	LogLevel    string        `mapstructure:"log-level"`
	Verbose     bool          `mapstructure:"verbose"`
	LogFile     string        `mapstructure:"log-file"`
}

// Dir returns the per-user config directory searched when no --config file is
// given, e.g. ~/.config/sitetree on Linux.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// RegisterFlags defines every configuration flag on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("url", "u", "", "seed URL (http://, https:// or www.)")
	fs.IntP("depth", "d", crawler.DefaultMaxDepth, "maximum crawl depth, must be > 0")
	fs.IntP("concurrency", "c", crawler.DefaultMaxConcurrency, "maximum concurrent fetches")
	fs.Duration("timeout", crawler.DefaultRequestTimeout, "per-fetch timeout")
	fs.Float64("rate", 0, "fetches per second across the crawl (0 = unpaced)")
	fs.String("user-agent", crawler.DefaultUserAgent, "User-Agent header")
	fs.Bool("strict-host", false, "match absolute links by exact host instead of substring")
	fs.Bool("bloom", false, "track visited URLs in a disk-backed bloom filter")
	fs.String("format", FormatText, "output format: text, json or csv")
	fs.Bool("tui", false, "show an interactive progress view")
	fs.String("log-level", "warn", "log level: trace, debug, info, warn, error")
	fs.BoolP("verbose", "v", false, "debug logging")
	fs.String("log-file", "", "also write JSON logs to this rotated file")
	fs.String("config", "", "YAML config file")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("url", "")
	v.SetDefault("depth", crawler.DefaultMaxDepth)
	v.SetDefault("concurrency", crawler.DefaultMaxConcurrency)
	v.SetDefault("timeout", crawler.DefaultRequestTimeout)
	v.SetDefault("rate", 0.0)
	v.SetDefault("user-agent", crawler.DefaultUserAgent)
	v.SetDefault("strict-host", false)
	v.SetDefault("bloom", false)
	v.SetDefault("format", FormatText)
	v.SetDefault("tui", false)
	v.SetDefault("log-level", "warn")
	v.SetDefault("verbose", false)
	v.SetDefault("log-file", "")
}

// Load merges, from highest to lowest precedence, flags explicitly set in
// flags, SITETREE_* environment variables, the YAML file at path and the
// defaults. flags may be nil. With an empty path, config.yaml in Dir is read
// if it exists.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file in %s: %w", Dir(), err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that are not validated by the crawler.
func (c Config) Validate() error {
	if !slices.Contains([]string{FormatText, FormatJSON, FormatCSV}, c.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}
	return nil
}

// Crawler returns the crawler configuration. It is validated by crawler.New.
func (c Config) Crawler() crawler.Config {
	return crawler.Config{
		SeedURL:        c.URL,
		MaxDepth:       c.Depth,
		MaxConcurrency: c.Concurrency,
		RequestTimeout: c.Timeout,
		UserAgent:      c.UserAgent,
		RateLimit:      c.Rate,
		StrictHost:     c.StrictHost,
		Bloom:          c.Bloom,
	}
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Verbose = c.Verbose
	cfg.File = c.LogFile
	return cfg
}
