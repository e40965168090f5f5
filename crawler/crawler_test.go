package crawler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lukemcguire/sitetree/crawler"
	"github.com/lukemcguire/sitetree/result"
)

// fakeSite serves a link graph without the network. The content of a page is
// its own URL, and the extractor looks the links up by that URL.
type fakeSite struct {
	links  map[string][]string
	fail   map[string]error
	delay  time.Duration
	delays map[string]time.Duration // per-URL, overrides delay

	mu      sync.Mutex
	fetches []string
	active  int
	overlap int // highest number of concurrent fetches observed
}

func (s *fakeSite) Fetch(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	s.fetches = append(s.fetches, url)
	s.active++
	s.overlap = max(s.overlap, s.active)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	delay := s.delay
	if d, ok := s.delays[url]; ok {
		delay = d
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := s.fail[url]; err != nil {
		return "", err
	}
	if _, ok := s.links[url]; !ok {
		return "", &crawler.StatusError{URL: url, StatusCode: http.StatusNotFound}
	}
	return url, nil
}

func (s *fakeSite) ExtractLinks(content string) []string {
	return s.links[content]
}

func (s *fakeSite) fetchCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.fetches {
		if f == url {
			n++
		}
	}
	return n
}

func (s *fakeSite) options() []crawler.Option {
	return []crawler.Option{crawler.WithFetcher(s), crawler.WithExtractor(s)}
}

// runCrawl builds a crawler for seed over site and runs it.
func runCrawl(t *testing.T, site *fakeSite, seed string, depth, concurrency int, opts ...crawler.Option) *result.Result {
	t.Helper()

	cfg := crawler.DefaultConfig(seed)
	cfg.MaxDepth = depth
	cfg.MaxConcurrency = concurrency

	c, err := crawler.New(cfg, append(site.options(), opts...)...)
	if err != nil {
		t.Fatalf("crawler.New() error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := c.Close(); closeErr != nil {
			t.Errorf("Close() error: %v", closeErr)
		}
	})

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	return res
}

// treeLines renders the tree as "depth url" lines for comparison.
func treeLines(root *result.Page) []string {
	var lines []string
	root.Walk(func(page *result.Page, depth int) {
		lines = append(lines, fmt.Sprintf("%d %s", depth, page.URL))
	})
	return lines
}

func childURLs(page *result.Page) []string {
	var urls []string
	for _, child := range page.Children() {
		urls = append(urls, child.URL)
	}
	return urls
}

func TestRunBuildsTreeInDocumentOrder(t *testing.T) {
	site := &fakeSite{links: map[string][]string{
		"http://example.com/":  {"/b", "http://example.com/a", "mailto:x@example.com", "/c/"},
		"http://example.com/b": {"/b/1"},
		"http://example.com/a": {"http://other.com/x", "relative"},
		"http://example.com/c": {},
	}}

	res := runCrawl(t, site, "http://example.com/", 3, 10)

	want := []string{
		"0 http://example.com/",
		"1 http://example.com/b",
		"2 http://example.com/b/1",
		"1 http://example.com/a",
		"1 http://example.com/c",
	}
	if got := treeLines(res.Root); !slices.Equal(got, want) {
		t.Errorf("tree = %q, want %q", got, want)
	}
}

// TestRunDepthBound verifies that pages at depth MaxDepth are unfetched
// leaves, nothing lies below them, and every shallower page was fetched.
func TestRunDepthBound(t *testing.T) {
	// Every page links to two fresh pages, far deeper than any limit tested.
	links := make(map[string][]string)
	var build func(path string, level int)
	build = func(path string, level int) {
		if level > 7 {
			return
		}
		url := "http://example.com" + path
		links[url] = []string{path + "l", path + "r"}
		build(path+"l", level+1)
		build(path+"r", level+1)
	}
	build("/", 0)

	for _, depth := range []int{1, 2, 3, 4} {
		t.Run(fmt.Sprintf("depth %d", depth), func(t *testing.T) {
			site := &fakeSite{links: links}
			res := runCrawl(t, site, "http://example.com/", depth, 8)

			res.Root.Walk(func(page *result.Page, d int) {
				switch {
				case d > depth:
					t.Errorf("page %s at depth %d, limit %d", page.URL, d, depth)
				case d == depth:
					if n := len(page.Children()); n != 0 {
						t.Errorf("frontier page %s has %d children", page.URL, n)
					}
					if site.fetchCount(page.URL) != 0 {
						t.Errorf("frontier page %s was fetched", page.URL)
					}
				default:
					if site.fetchCount(page.URL) != 1 {
						t.Errorf("page %s at depth %d fetched %d times", page.URL, d, site.fetchCount(page.URL))
					}
				}
			})

			// A full binary tree of height depth.
			if want := 1<<(depth+1) - 1; res.Stats.Pages != want {
				t.Errorf("Pages = %d, want %d", res.Stats.Pages, want)
			}
			if res.Root.Height() != depth {
				t.Errorf("Height() = %d, want %d", res.Root.Height(), depth)
			}
		})
	}
}

func TestRunDepthOneFetchesOnlySeed(t *testing.T) {
	site := &fakeSite{links: map[string][]string{
		"http://example.com/":  {"/a"},
		"http://example.com/a": {"/b"},
	}}

	res := runCrawl(t, site, "http://example.com/", 1, 10)

	if got := childURLs(res.Root); !slices.Equal(got, []string{"http://example.com/a"}) {
		t.Errorf("root children = %q", got)
	}
	if site.fetchCount("http://example.com/a") != 0 {
		t.Error("child of depth-1 crawl was fetched")
	}
	if res.Stats.Fetched != 1 {
		t.Errorf("Fetched = %d, want 1", res.Stats.Fetched)
	}
}

func TestRunCycleTerminates(t *testing.T) {
	site := &fakeSite{links: map[string][]string{
		"http://example.com/a": {"/b"},
		"http://example.com/b": {"/a", "/b"},
	}}

	res := runCrawl(t, site, "http://example.com/a", 50, 4)

	want := []string{
		"0 http://example.com/a",
		"1 http://example.com/b",
	}
	if got := treeLines(res.Root); !slices.Equal(got, want) {
		t.Errorf("tree = %q, want %q", got, want)
	}
	for _, url := range []string{"http://example.com/a", "http://example.com/b"} {
		if n := site.fetchCount(url); n != 1 {
			t.Errorf("%s fetched %d times, want 1", url, n)
		}
	}
}

// TestRunDeduplicatesAcrossBranches verifies that a page linked from two
// parents appears once in the tree and is fetched once.
func TestRunDeduplicatesAcrossBranches(t *testing.T) {
	site := &fakeSite{links: map[string][]string{
		"http://example.com/":       {"/left", "/right", "/left"},
		"http://example.com/left":   {"/shared", "/l"},
		"http://example.com/right":  {"/shared", "/r"},
		"http://example.com/shared": {"/deep"},
		"http://example.com/l":      {},
		"http://example.com/r":      {},
		"http://example.com/deep":   {},
	}}

	res := runCrawl(t, site, "http://example.com/", 4, 10)

	if got := childURLs(res.Root); !slices.Equal(got, []string{"http://example.com/left", "http://example.com/right"}) {
		t.Errorf("root children = %q, duplicates should be omitted", got)
	}

	seen := make(map[string]int)
	res.Root.Walk(func(page *result.Page, _ int) { seen[page.URL]++ })
	for url, n := range seen {
		if n != 1 {
			t.Errorf("%s appears %d times in the tree", url, n)
		}
	}
	if seen["http://example.com/shared"] != 1 || seen["http://example.com/deep"] != 1 {
		t.Errorf("shared subtree missing: %v", seen)
	}
	for url := range site.links {
		if n := site.fetchCount(url); n > 1 {
			t.Errorf("%s fetched %d times", url, n)
		}
	}
}

// TestRunFrontierDoesNotClaim verifies that a page first seen as a leaf at
// the depth limit is still expanded when a slower, shallower branch reaches
// it later.
func TestRunFrontierDoesNotClaim(t *testing.T) {
	site := &fakeSite{
		links: map[string][]string{
			"http://example.com/":  {"/a", "/b"},
			"http://example.com/a": {"/c"},
			"http://example.com/b": {"/e"},
			"http://example.com/e": {"/c"},
			"http://example.com/c": {"/f"},
			"http://example.com/f": {},
		},
		delays: map[string]time.Duration{"http://example.com/a": 100 * time.Millisecond},
	}

	res := runCrawl(t, site, "http://example.com/", 3, 10)

	want := []string{
		"0 http://example.com/",
		"1 http://example.com/a",
		"2 http://example.com/c",
		"3 http://example.com/f",
		"1 http://example.com/b",
		"2 http://example.com/e",
		"3 http://example.com/c",
	}
	if got := treeLines(res.Root); !slices.Equal(got, want) {
		t.Errorf("tree = %q, want %q", got, want)
	}
	if n := site.fetchCount("http://example.com/c"); n != 1 {
		t.Errorf("/c fetched %d times, want 1", n)
	}
	if n := site.fetchCount("http://example.com/f"); n != 0 {
		t.Errorf("/f fetched %d times, want 0", n)
	}
}

// TestRunFrontierChildren verifies that leaves at the depth limit are
// deduplicated within their page, are left unclaimed, and are omitted when
// the URL was already claimed elsewhere.
func TestRunFrontierChildren(t *testing.T) {
	site := &fakeSite{links: map[string][]string{
		"http://example.com/": {"/a", "/a/", "/taken", "/b", "/a"},
	}}
	claims := crawler.NewClaimSet()
	claims.Claim("http://example.com/taken")

	res := runCrawl(t, site, "http://example.com/", 1, 10, crawler.WithClaimer(claims))

	if got, want := childURLs(res.Root), []string{"http://example.com/a", "http://example.com/b"}; !slices.Equal(got, want) {
		t.Errorf("root children = %q, want %q", got, want)
	}
	if claims.Contains("http://example.com/a") || claims.Contains("http://example.com/b") {
		t.Error("frontier children were claimed")
	}
	if claims.Len() != 2 { // the seed and /taken
		t.Errorf("Len() = %d, want 2", claims.Len())
	}
}

// TestRunFetchFailureIsolation verifies a failing child becomes a leaf while
// its sibling is still expanded.
func TestRunFetchFailureIsolation(t *testing.T) {
	site := &fakeSite{
		links: map[string][]string{
			"http://example.com/":  {"/x", "/y"},
			"http://example.com/x": {"/x1"},
			"http://example.com/y": {"/y1", "/y2"},
		},
		fail: map[string]error{
			"http://example.com/x": errors.New("connection reset by peer"),
		},
	}

	res := runCrawl(t, site, "http://example.com/", 3, 10)

	children := res.Root.Children()
	if len(children) != 2 {
		t.Fatalf("root has %d children, want 2", len(children))
	}
	if x := children[0]; x.URL != "http://example.com/x" || len(x.Children()) != 0 {
		t.Errorf("failed child = %s with %d children, want leaf /x", x.URL, len(x.Children()))
	}
	if got := childURLs(children[1]); !slices.Equal(got, []string{"http://example.com/y1", "http://example.com/y2"}) {
		t.Errorf("sibling children = %q", got)
	}

	if res.Stats.Failed != 3 { // /x plus the two missing /y1, /y2 pages
		t.Errorf("Failed = %d, want 3", res.Stats.Failed)
	}
	if res.Stats.Failures[result.Category4xx] != 2 {
		t.Errorf("4xx failures = %d, want 2", res.Stats.Failures[result.Category4xx])
	}
	if res.Stats.Failures[result.CategoryUnknown] != 1 {
		t.Errorf("unknown failures = %d, want 1", res.Stats.Failures[result.CategoryUnknown])
	}
}

func TestRunSeedFailureReturnsLeaf(t *testing.T) {
	site := &fakeSite{links: map[string][]string{}}

	res := runCrawl(t, site, "http://example.com/", 3, 10)

	if res.Root.URL != "http://example.com/" || len(res.Root.Children()) != 0 {
		t.Errorf("expected bare seed leaf, got %q", treeLines(res.Root))
	}
	if res.Stats.Pages != 1 || res.Stats.Failed != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

// TestRunConcurrencyBound verifies that with MaxConcurrency 1 no two fetches
// overlap even on a wide tree, and that larger limits are respected too.
func TestRunConcurrencyBound(t *testing.T) {
	links := map[string][]string{"http://example.com/": {}}
	for i := range 12 {
		parent := fmt.Sprintf("/p%d", i)
		links["http://example.com/"] = append(links["http://example.com/"], parent)
		links["http://example.com"+parent] = []string{parent + "/a", parent + "/b"}
		links["http://example.com"+parent+"/a"] = nil
		links["http://example.com"+parent+"/b"] = nil
	}

	for _, limit := range []int{1, 3} {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			site := &fakeSite{links: links, delay: time.Millisecond}
			res := runCrawl(t, site, "http://example.com/", 3, limit)

			if site.overlap > limit {
				t.Errorf("observed %d overlapping fetches, limit %d", site.overlap, limit)
			}
			if res.Stats.Pages != 1+12+24 {
				t.Errorf("Pages = %d, want %d", res.Stats.Pages, 1+12+24)
			}
		})
	}
}

func TestRunTimeoutIsFetchFailure(t *testing.T) {
	site := &fakeSite{
		links: map[string][]string{
			"http://example.com/":     {"/slow", "/fast"},
			"http://example.com/slow": {"/never"},
			"http://example.com/fast": {},
		},
	}
	slow := crawler.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		if strings.HasSuffix(url, "/slow") {
			<-ctx.Done()
			return "", fmt.Errorf("fetch %s: %w", url, ctx.Err())
		}
		return site.Fetch(ctx, url)
	})

	cfg := crawler.DefaultConfig("http://example.com/")
	cfg.RequestTimeout = 20 * time.Millisecond
	c, err := crawler.New(cfg, crawler.WithFetcher(slow), crawler.WithExtractor(site))
	if err != nil {
		t.Fatalf("crawler.New() error: %v", err)
	}

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if got := childURLs(res.Root); !slices.Equal(got, []string{"http://example.com/slow", "http://example.com/fast"}) {
		t.Fatalf("root children = %q", got)
	}
	if n := len(res.Root.Children()[0].Children()); n != 0 {
		t.Errorf("timed out page has %d children", n)
	}
	if res.Stats.Failures[result.CategoryTimeout] != 1 {
		t.Errorf("timeout failures = %d, want 1", res.Stats.Failures[result.CategoryTimeout])
	}
}

func TestRunPanicIsReturnedAsError(t *testing.T) {
	site := &fakeSite{links: map[string][]string{
		"http://example.com/":  {"/a"},
		"http://example.com/a": {},
	}}
	extractor := crawler.LinkExtractorFunc(func(content string) []string {
		if content == "http://example.com/a" {
			panic("bad markup")
		}
		return site.ExtractLinks(content)
	})

	c, err := crawler.New(crawler.DefaultConfig("http://example.com/"),
		crawler.WithFetcher(site), crawler.WithExtractor(extractor))
	if err != nil {
		t.Fatalf("crawler.New() error: %v", err)
	}

	_, err = c.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panic: bad markup") {
		t.Errorf("Run() error = %v, want recovered panic", err)
	}
}

func TestRunTwiceFails(t *testing.T) {
	site := &fakeSite{links: map[string][]string{"http://example.com/": {}}}
	c, err := crawler.New(crawler.DefaultConfig("http://example.com/"), site.options()...)
	if err != nil {
		t.Fatalf("crawler.New() error: %v", err)
	}

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if _, err := c.Run(context.Background()); !errors.Is(err, crawler.ErrAlreadyRun) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRun", err)
	}
}

func TestRunPreclaimedSeed(t *testing.T) {
	site := &fakeSite{links: map[string][]string{"http://example.com/": {"/a"}}}
	claims := crawler.NewClaimSet()
	claims.Claim("http://example.com/")

	res := runCrawl(t, site, "http://example.com/", 3, 10, crawler.WithClaimer(claims))

	if len(res.Root.Children()) != 0 || res.Stats.Fetched != 0 {
		t.Errorf("pre-claimed seed should not be expanded: %q", treeLines(res.Root))
	}
}

func TestRunProgressEvents(t *testing.T) {
	site := &fakeSite{links: map[string][]string{
		"http://example.com/":  {"/a", "/missing"},
		"http://example.com/a": {},
	}}

	progressCh := make(chan crawler.CrawlEvent, 100)
	runCrawl(t, site, "http://example.com/", 3, 10, crawler.WithProgress(progressCh))

	var events []crawler.CrawlEvent
	for evt := range progressCh { // closed by Run
		events = append(events, evt)
	}

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].URL != "http://example.com/" || events[0].Children != 2 || events[0].Depth != 0 {
		t.Errorf("first event = %+v", events[0])
	}

	var failures, total int
	for _, evt := range events {
		total = max(total, evt.Fetched+evt.Failed)
		if evt.Error != "" {
			failures++
			if evt.ErrorCategory != result.Category4xx {
				t.Errorf("failure category = %q, want 4xx", evt.ErrorCategory)
			}
		}
	}
	if failures != 1 {
		t.Errorf("got %d failure events, want 1", failures)
	}
	if total != 3 {
		t.Errorf("highest fetched+failed counter = %d, want 3", total)
	}
}

// TestRunProgressConsumerGone verifies that a progress channel nobody reads
// does not keep Run from returning once ctx is cancelled.
func TestRunProgressConsumerGone(t *testing.T) {
	site := &fakeSite{links: map[string][]string{
		"http://example.com/":  {"/a", "/b"},
		"http://example.com/a": {},
		"http://example.com/b": {},
	}}

	progressCh := make(chan crawler.CrawlEvent)
	c, err := crawler.New(crawler.DefaultConfig("http://example.com/"),
		append(site.options(), crawler.WithProgress(progressCh))...)
	if err != nil {
		t.Fatalf("crawler.New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, runErr := c.Run(ctx)
		done <- runErr
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case runErr := <-done:
		if runErr != nil {
			t.Errorf("Run() error: %v", runErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() blocked on an unread progress channel")
	}
	if _, ok := <-progressCh; ok {
		t.Error("progress channel still open after Run returned")
	}
}

func TestRunWithBloom(t *testing.T) {
	site := &fakeSite{links: map[string][]string{
		"http://example.com/":  {"/a", "/b"},
		"http://example.com/a": {"/b", "/"},
		"http://example.com/b": {"/a"},
	}}

	cfg := crawler.DefaultConfig("http://example.com/")
	cfg.Bloom = true
	c, err := crawler.New(cfg, site.options()...)
	if err != nil {
		t.Fatalf("crawler.New() error: %v", err)
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			t.Errorf("Close() error: %v", closeErr)
		}
	}()

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Stats.Pages != 3 {
		t.Errorf("Pages = %d, want 3: %q", res.Stats.Pages, treeLines(res.Root))
	}
}

func TestNewConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*crawler.Config)
		wantErr error
	}{
		{
			name:    "relative seed",
			mutate:  func(c *crawler.Config) { c.SeedURL = "example.com" },
			wantErr: crawler.ErrInvalidSeed,
		},
		{
			name:    "ftp seed",
			mutate:  func(c *crawler.Config) { c.SeedURL = "ftp://example.com" },
			wantErr: crawler.ErrInvalidSeed,
		},
		{
			name:    "zero depth",
			mutate:  func(c *crawler.Config) { c.MaxDepth = 0 },
			wantErr: crawler.ErrInvalidDepth,
		},
		{
			name:    "negative depth",
			mutate:  func(c *crawler.Config) { c.MaxDepth = -2 },
			wantErr: crawler.ErrInvalidDepth,
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *crawler.Config) { c.MaxConcurrency = 0 },
			wantErr: crawler.ErrInvalidConcurrency,
		},
		{
			name:    "negative rate",
			mutate:  func(c *crawler.Config) { c.RateLimit = -1 },
			wantErr: crawler.ErrInvalidRate,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *crawler.Config) { c.RequestTimeout = -time.Second },
			wantErr: crawler.ErrInvalidTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := crawler.DefaultConfig("https://example.com")
			tt.mutate(&cfg)

			_, err := crawler.New(cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	cfg := crawler.DefaultConfig("https://www.example.com/start")
	if cfg.MaxDepth != 3 || cfg.MaxConcurrency != 100 || cfg.RequestTimeout != 5*time.Second {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}

	cfg.RequestTimeout = 0
	cfg.UserAgent = ""
	c, err := crawler.New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if c.Domain() != "example.com" {
		t.Errorf("Domain() = %q, want example.com", c.Domain())
	}
}

// newTestServer creates an httptest server with a small site:
//
//	/        -> /page1, /page2, external, mailto
//	/page1   -> /page2 (dedup), /broken, /logo.png
//	/page2   -> / (cycle)
//	/broken  -> 404
//	/logo.png -> image/png
func newTestServer() *httptest.Server {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := fmt.Fprint(w, body); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		write(w, `<html><body>
			<a href="/page1">Page 1</a>
			<a href="/page2/">Page 2</a>
			<a href="https://external.example.org/resource">External</a>
			<a href="mailto:someone@example.org">Mail</a>
		</body></html>`)
	})
	mux.HandleFunc("/page1", func(w http.ResponseWriter, r *http.Request) {
		write(w, `<html><body>
			<a href="/page2">Page 2 again</a>
			<a href="/broken">Broken link</a>
			<a href="/logo.png">Logo</a>
		</body></html>`)
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		write(w, `<html><body><a href="/">Home</a></body></html>`)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	mux.HandleFunc("/logo.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})

	return httptest.NewServer(mux)
}

// TestCrawlerIntegration runs the default HTTP fetcher and HTML extractor
// against a live test server.
func TestCrawlerIntegration(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	cfg := crawler.DefaultConfig(ts.URL + "/")
	cfg.MaxDepth = 2
	cfg.MaxConcurrency = 2

	c, err := crawler.New(cfg)
	if err != nil {
		t.Fatalf("crawler.New() error: %v", err)
	}

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	want := []string{
		"0 " + ts.URL + "/",
		"1 " + ts.URL + "/page1",
		"2 " + ts.URL + "/broken",
		"2 " + ts.URL + "/logo.png",
		"1 " + ts.URL + "/page2",
	}
	if got := treeLines(res.Root); !slices.Equal(got, want) {
		t.Errorf("tree = %q, want %q", got, want)
	}

	// /broken and /logo.png sit at the depth limit and are never fetched.
	if res.Stats.Fetched != 3 || res.Stats.Failed != 0 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestCrawlerIntegrationDeepFailures(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	cfg := crawler.DefaultConfig(ts.URL + "/")

	var fetches atomic.Int64
	fetcher := crawler.NewHTTPFetcher(nil, "test-agent")
	counting := crawler.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		fetches.Add(1)
		return fetcher.Fetch(ctx, url)
	})

	c, err := crawler.New(cfg, crawler.WithFetcher(counting))
	if err != nil {
		t.Fatalf("crawler.New() error: %v", err)
	}

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if res.Stats.Fetched != 3 || res.Stats.Failed != 2 {
		t.Errorf("stats = %+v, want 3 fetched and 2 failed", res.Stats)
	}
	if res.Stats.Failures[result.Category4xx] != 1 {
		t.Errorf("4xx failures = %d, want 1", res.Stats.Failures[result.Category4xx])
	}
	if res.Stats.Failures[result.CategoryContentType] != 1 {
		t.Errorf("content type failures = %d, want 1", res.Stats.Failures[result.CategoryContentType])
	}
	if fetches.Load() != 5 {
		t.Errorf("fetches = %d, want 5", fetches.Load())
	}
}
