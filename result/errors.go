package result

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// Sentinel fetch failures. Fetchers wrap them so the crawl can classify a
// failure without inspecting its message.
var (
	// ErrUnsupportedContent marks a response whose body is not text the link
	// extractor can read.
	ErrUnsupportedContent = errors.New("unsupported content type")
	// ErrRedirectLoop marks a request abandoned after too many redirects.
	ErrRedirectLoop = errors.New("too many redirects")
)

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// ErrorCategory groups failed fetches for the crawl summary.
type ErrorCategory string

const (
	CategoryTimeout           ErrorCategory = "timeout"
	CategoryCanceled          ErrorCategory = "canceled"
	CategoryDNSFailure        ErrorCategory = "dns_failure"
	CategoryConnectionRefused ErrorCategory = "connection_refused"
	Category4xx               ErrorCategory = "4xx"
	Category5xx               ErrorCategory = "5xx"
	CategoryRedirectLoop      ErrorCategory = "redirect_loop"
	CategoryContentType       ErrorCategory = "content_type"
	CategoryUnknown           ErrorCategory = "unknown"
)

// ClassifyError maps a fetch failure to its category. Every failure is a leaf
// to the crawl; categories only feed stats and debug logs.
func ClassifyError(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusCategory(statusErr.StatusCode)
	}

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, ErrRedirectLoop):
		return CategoryRedirectLoop
	case errors.Is(err, ErrUnsupportedContent):
		return CategoryContentType
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.Is(err, context.Canceled):
		return CategoryCanceled
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return CategoryTimeout
		}
		return CategoryDNSFailure
	case errors.Is(err, syscall.ECONNREFUSED):
		return CategoryConnectionRefused
	case errors.As(err, &netErr) && netErr.Timeout():
		return CategoryTimeout
	}
	return CategoryUnknown
}

func statusCategory(code int) ErrorCategory {
	switch {
	case code >= http.StatusInternalServerError:
		return Category5xx
	case code >= http.StatusBadRequest:
		return Category4xx
	default:
		return CategoryUnknown
	}
}

// FormatCategory returns the summary label for a category.
func FormatCategory(cat ErrorCategory) string {
	switch cat {
	case CategoryTimeout:
		return "Timeouts"
	case CategoryCanceled:
		return "Cancelled"
	case CategoryDNSFailure:
		return "DNS Failures"
	case CategoryConnectionRefused:
		return "Connection Refused"
	case Category4xx:
		return "Client Errors (4xx)"
	case Category5xx:
		return "Server Errors (5xx)"
	case CategoryRedirectLoop:
		return "Redirect Loops"
	case CategoryContentType:
		return "Non-text Content"
	default:
		return "Other Errors"
	}
}
