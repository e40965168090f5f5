package crawler

import "github.com/lukemcguire/sitetree/result"

// CrawlEvent reports the outcome of a single fetch attempt.
type CrawlEvent struct {
	URL           string
	Depth         int
	Children      int // In-scope, newly claimed links (0 on failure)
	Error         string
	ErrorCategory result.ErrorCategory
	Fetched       int // Successful fetches so far
	Failed        int // Failed fetches so far
}
