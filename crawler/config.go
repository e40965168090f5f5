package crawler

import (
	"errors"
	"fmt"
	"time"

	"github.com/lukemcguire/sitetree/urlutil"
)

const (
	// DefaultMaxDepth is the depth limit used when none is configured.
	DefaultMaxDepth = 3
	// DefaultMaxConcurrency bounds simultaneous fetches across the whole crawl.
	DefaultMaxConcurrency = 100
	// DefaultRequestTimeout bounds a single fetch.
	DefaultRequestTimeout = 5 * time.Second
	// DefaultUserAgent identifies the crawler to servers.
	DefaultUserAgent = "sitetree/1.0 (+https://github.com/lukemcguire/sitetree)"
)

// Configuration errors. They are returned, wrapped, by Config.Validate and New.
var (
	ErrInvalidSeed        = urlutil.ErrInvalidSeed
	ErrInvalidDepth       = errors.New("max depth must be greater than 0")
	ErrInvalidConcurrency = errors.New("max concurrency must be greater than 0")
	ErrInvalidRate        = errors.New("rate limit must not be negative")
	ErrInvalidTimeout     = errors.New("request timeout must not be negative")
)

// Config holds crawler configuration. It is fixed for the duration of a run.
type Config struct {
	SeedURL        string        // Root of the tree; must start with http://, https:// or www.
	MaxDepth       int           // Depth limit; the seed is depth 0 (default 3)
	MaxConcurrency int           // Global bound on in-flight fetches (default 100)
	RequestTimeout time.Duration // Per-fetch timeout (default 5s)
	UserAgent      string        // User-Agent header for the default fetcher
	RateLimit      float64       // Fetches per second across the crawl, 0 = unpaced
	StrictHost     bool          // Require exact host or subdomain match for absolute links
	Bloom          bool          // Use the disk-backed bloom filter for visited URLs
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(seedURL string) Config {
	return Config{
		SeedURL:        seedURL,
		MaxDepth:       DefaultMaxDepth,
		MaxConcurrency: DefaultMaxConcurrency,
		RequestTimeout: DefaultRequestTimeout,
		UserAgent:      DefaultUserAgent,
	}
}

// Validate reports the first configuration error in cfg.
func (cfg Config) Validate() error {
	if _, err := urlutil.NewScope(cfg.SeedURL, cfg.StrictHost); err != nil {
		return fmt.Errorf("invalid seed URL: %w", err)
	}
	if cfg.MaxDepth <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidDepth, cfg.MaxDepth)
	}
	if cfg.MaxConcurrency <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidConcurrency, cfg.MaxConcurrency)
	}
	if cfg.RateLimit < 0 {
		return fmt.Errorf("%w, got %g", ErrInvalidRate, cfg.RateLimit)
	}
	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("%w, got %s", ErrInvalidTimeout, cfg.RequestTimeout)
	}
	return nil
}
