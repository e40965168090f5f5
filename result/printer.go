package result

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// PrintTree writes the two header lines followed by one line per page,
// depth-first in child order, each prefixed with one '>' per level.
func PrintTree(w io.Writer, root *Page, maxDepth int) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	writef("SOURCE URL: %s\n", root.URL)
	writef("MAX DEPTH: %d\n", maxDepth)
	root.Walk(func(page *Page, depth int) {
		writef("%s %s\n", strings.Repeat(">", depth), page.URL)
	})
}

// PrintSummary writes crawl statistics to w.
func PrintSummary(w io.Writer, stats CrawlStats) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	writef("Mapped %d pages (%d fetched, %d failed) in %s\n",
		stats.Pages, stats.Fetched, stats.Failed, stats.Duration.Round(1_000_000))
	for _, cat := range Categories() {
		if n := stats.Failures[cat]; n > 0 {
			writef("  %s: %d\n", FormatCategory(cat), n)
		}
	}
}

// Categories returns every failure category in display order.
func Categories() []ErrorCategory {
	return slices.Clone(categoryOrder)
}

var categoryOrder = []ErrorCategory{
	CategoryTimeout,
	CategoryDNSFailure,
	CategoryConnectionRefused,
	Category4xx,
	Category5xx,
	CategoryRedirectLoop,
	CategoryContentType,
	CategoryCanceled,
	CategoryUnknown,
}
