package crawler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/lukemcguire/sitetree/result"
	"github.com/lukemcguire/sitetree/urlutil"
)

const (
	// maxBodySize caps how much of a page is read for link extraction.
	maxBodySize = 10 * 1024 * 1024
	// maxRedirects is how many redirects a fetch follows before failing
	// with result.ErrRedirectLoop.
	maxRedirects = 10
)

// Fetcher retrieves the text content of a page. The crawler bounds every
// call with its per-fetch timeout through ctx.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// StatusError is returned for responses outside the 2xx range.
type StatusError = result.StatusError

// HTTPFetcher fetches pages with GET requests.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates an HTTPFetcher. A nil client uses a fresh
// http.Client without its own timeout; the crawler's context deadline applies.
// A client without a redirect policy gets one that stops after maxRedirects.
func NewHTTPFetcher(client *http.Client, userAgent string) *HTTPFetcher {
	c := &http.Client{}
	if client != nil {
		*c = *client
	}
	if c.CheckRedirect == nil {
		c.CheckRedirect = limitRedirects
	}
	return &HTTPFetcher{client: c, userAgent: userAgent}
}

func limitRedirects(_ *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", result.ErrRedirectLoop, len(via))
	}
	return nil
}

// Fetch GETs url and returns the body. Non-2xx responses, binary content
// types and unreadable bodies are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (body string, err error) {
	target := urlutil.Fetchable(url)
	if !urlutil.IsHTTPScheme(target) {
		return "", fmt.Errorf("fetch %s: not an http(s) URL", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("create request for %s: %w", url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close response body: %w", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if isBinaryContentType(contentType) {
		return "", fmt.Errorf("fetch %s: %q: %w", url, contentType, result.ErrUnsupportedContent)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", url, err)
	}
	return string(data), nil
}

// isBinaryContentType reports whether a Content-Type header names content
// that cannot contain hyperlinks as text.
func isBinaryContentType(contentType string) bool {
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	for _, prefix := range []string{"image/", "video/", "audio/", "font/"} {
		if strings.HasPrefix(mediaType, prefix) {
			return true
		}
	}

	switch mediaType {
	case "application/pdf",
		"application/zip",
		"application/x-zip-compressed",
		"application/gzip",
		"application/vnd.rar",
		"application/x-7z-compressed",
		"application/octet-stream":
		return true
	}
	return false
}
