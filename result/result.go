// Package result holds the crawl tree and the renderings of it: the indented
// text report, JSON, and CSV.
package result

import "time"

// CrawlStats contains aggregate statistics for a crawl operation.
type CrawlStats struct {
	Pages    int                   // Pages in the final tree
	Fetched  int                   // Successful fetches
	Failed   int                   // Failed fetches (leaves by failure)
	Failures map[ErrorCategory]int // Failed fetches per category
	Duration time.Duration         // Total time taken for the crawl
}

// Result represents the complete output of a crawl.
type Result struct {
	Root     *Page      // Seed page, fully expanded
	MaxDepth int        // Depth limit the tree was built with
	Stats    CrawlStats // Aggregate statistics
}
