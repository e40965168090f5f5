// Package crawler builds a tree of same-domain pages reachable from a seed
// URL. Every page is expanded in its own goroutine, fetches are bounded by a
// single crawl-wide Limiter, and a shared Claimer makes sure no URL is
// expanded twice.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/sitetree/result"
	"github.com/lukemcguire/sitetree/urlutil"
)

// ErrAlreadyRun is returned by Run on a Crawler that has already run.
var ErrAlreadyRun = errors.New("crawler has already run")

// Crawler expands a page tree from Config.SeedURL. A Crawler runs once.
type Crawler struct {
	cfg        Config
	scope      urlutil.Scope
	fetcher    Fetcher
	extractor  LinkExtractor
	claimer    Claimer
	closer     io.Closer // claimer created by New, if it needs closing
	limiter    *Limiter
	logger     zerolog.Logger
	progressCh chan<- CrawlEvent

	started  atomic.Bool
	fetched  atomic.Int64
	failed   atomic.Int64
	mu       sync.Mutex
	failures map[result.ErrorCategory]int
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithFetcher replaces the default HTTPFetcher.
func WithFetcher(f Fetcher) Option {
	return func(c *Crawler) {
		c.fetcher = f
	}
}

// WithExtractor replaces the default HTMLExtractor.
func WithExtractor(e LinkExtractor) Option {
	return func(c *Crawler) {
		c.extractor = e
	}
}

// WithClaimer replaces the visited set. The caller keeps ownership of it.
func WithClaimer(cl Claimer) Option {
	return func(c *Crawler) {
		c.claimer = cl
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithProgress sends a CrawlEvent after every fetch attempt. Run closes the
// channel when it returns.
func WithProgress(ch chan<- CrawlEvent) Option {
	return func(c *Crawler) {
		c.progressCh = ch
	}
}

// New validates cfg and creates a Crawler. Zero RequestTimeout and empty
// UserAgent fall back to their defaults; any invalid field, including a
// negative RequestTimeout, is a configuration error.
func New(cfg Config, opts ...Option) (*Crawler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	scope, err := urlutil.NewScope(cfg.SeedURL, cfg.StrictHost)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}

	c := &Crawler{
		cfg:      cfg,
		scope:    scope,
		limiter:  NewLimiter(cfg.MaxConcurrency, cfg.RateLimit),
		logger:   zerolog.Nop(),
		failures: make(map[result.ErrorCategory]int),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		c.fetcher = NewHTTPFetcher(nil, cfg.UserAgent)
	}
	if c.extractor == nil {
		c.extractor = HTMLExtractor{}
	}
	if c.claimer == nil {
		if cfg.Bloom {
			tracker, trackerErr := NewVisitedTracker(defaultBloomCapacity, defaultBloomFPRate)
			if trackerErr != nil {
				return nil, fmt.Errorf("create visited tracker: %w", trackerErr)
			}
			c.claimer = tracker
			c.closer = tracker
		} else {
			c.claimer = NewClaimSet()
		}
	}

	return c, nil
}

// Domain returns the target domain derived from the seed URL.
func (c *Crawler) Domain() string {
	return c.scope.Domain()
}

// Limiter returns the crawl-wide admission gate.
func (c *Crawler) Limiter() *Limiter {
	return c.limiter
}

// Close releases the visited set if New created one that holds resources.
func (c *Crawler) Close() error {
	if c.closer == nil {
		return nil
	}
	if err := c.closer.Close(); err != nil {
		return fmt.Errorf("close crawler: %w", err)
	}
	return nil
}

// Run expands the tree from the seed URL and returns it once every branch
// has finished. Failed fetches only truncate their own branch; an error is
// returned only for a defect in the expansion itself.
func (c *Crawler) Run(ctx context.Context) (*result.Result, error) {
	if !c.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}
	if c.progressCh != nil {
		defer close(c.progressCh)
	}

	start := time.Now()
	root := result.NewPage(c.cfg.SeedURL)

	c.logger.Info().
		Str("seed", root.URL).
		Str("domain", c.scope.Domain()).
		Int("max_depth", c.cfg.MaxDepth).
		Int("max_concurrency", c.cfg.MaxConcurrency).
		Msg("crawl started")

	if c.claimer.Claim(root.URL) {
		if err := c.expand(ctx, root, 0); err != nil {
			return nil, fmt.Errorf("expand tree: %w", err)
		}
	} else {
		c.logger.Debug().Str("url", root.URL).Msg("seed already claimed")
	}

	c.mu.Lock()
	failures := maps.Clone(c.failures)
	c.mu.Unlock()

	stats := result.CrawlStats{
		Pages:    root.Count(),
		Fetched:  int(c.fetched.Load()),
		Failed:   int(c.failed.Load()),
		Failures: failures,
		Duration: time.Since(start),
	}

	c.logger.Info().
		Int("pages", stats.Pages).
		Int("fetched", stats.Fetched).
		Int("failed", stats.Failed).
		Dur("duration", stats.Duration).
		Msg("crawl finished")

	return &result.Result{Root: root, MaxDepth: c.cfg.MaxDepth, Stats: stats}, nil
}

// expand fetches node, populates its children and, below the depth limit,
// expands every child concurrently. It returns after the whole subtree is
// done. node must already be claimed.
func (c *Crawler) expand(ctx context.Context, node *result.Page, depth int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("expand %s: panic: %v", node.URL, r)
		}
	}()

	content, ok := c.fetch(ctx, node.URL, depth)
	if !ok {
		return nil
	}

	expandChildren := depth+1 < c.cfg.MaxDepth
	children := c.children(content, expandChildren)
	if err := node.Populate(children); err != nil {
		return fmt.Errorf("populate %s: %w", node.URL, err)
	}
	c.emit(ctx, CrawlEvent{URL: node.URL, Depth: depth, Children: len(children)})

	if !expandChildren {
		return nil
	}

	var group errgroup.Group
	for _, child := range children {
		group.Go(func() error {
			return c.expand(ctx, child, depth+1)
		})
	}
	return group.Wait()
}

// fetch retrieves url under the limiter with the per-fetch timeout. Failures
// are recorded and reported as !ok; they never propagate.
func (c *Crawler) fetch(ctx context.Context, url string, depth int) (string, bool) {
	var content string
	err := c.limiter.Do(ctx, func() error {
		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()

		var fetchErr error
		content, fetchErr = c.fetcher.Fetch(fetchCtx, url)
		return fetchErr
	})
	if err != nil {
		c.recordFailure(ctx, url, depth, err)
		return "", false
	}

	c.fetched.Add(1)
	return content, true
}

// children resolves the links in content in document order, dropping links
// that are out of scope or already claimed. When the children will be
// expanded each one is claimed here. Frontier children are never fetched, so
// they stay unclaimed and remain available to a shallower branch.
func (c *Crawler) children(content string, expand bool) []*result.Page {
	links := c.extractor.ExtractLinks(content)
	children := make([]*result.Page, 0, len(links))
	seen := make(map[string]struct{}, len(links))
	for _, href := range links {
		resolved, ok := c.scope.Resolve(href)
		if !ok {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}

		if expand {
			if !c.claimer.Claim(resolved) {
				continue
			}
		} else if c.claimer.Contains(resolved) {
			continue
		}
		children = append(children, result.NewPage(resolved))
	}
	return children
}

func (c *Crawler) recordFailure(ctx context.Context, url string, depth int, err error) {
	category := result.ClassifyError(err)

	c.failed.Add(1)
	c.mu.Lock()
	c.failures[category]++
	c.mu.Unlock()

	c.logger.Debug().
		Err(err).
		Str("url", url).
		Int("depth", depth).
		Str("category", string(category)).
		Msg("fetch failed")

	c.emit(ctx, CrawlEvent{
		URL:           url,
		Depth:         depth,
		Error:         err.Error(),
		ErrorCategory: category,
	})
}

// emit logs evt and sends it to the progress channel. The send gives up
// when ctx is done so a consumer that stopped reading cannot stall the crawl.
func (c *Crawler) emit(ctx context.Context, evt CrawlEvent) {
	if evt.Error == "" {
		c.logger.Debug().
			Str("url", evt.URL).
			Int("depth", evt.Depth).
			Int("children", evt.Children).
			Msg("page expanded")
	}
	if c.progressCh == nil {
		return
	}
	evt.Fetched = int(c.fetched.Load())
	evt.Failed = int(c.failed.Load())
	select {
	case c.progressCh <- evt:
	case <-ctx.Done():
	}
}
