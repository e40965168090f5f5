package urlutil

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// absolutePattern matches hrefs that carry their own host.
var absolutePattern = regexp.MustCompile(`^(http://|https://|www\.)`)

// IsAbsolute reports whether raw starts with http://, https:// or www.
func IsAbsolute(raw string) bool {
	return absolutePattern.MatchString(raw)
}

// IsSameDomain checks if targetURL belongs to the same domain as baseHost.
// Subdomains are considered same-domain (e.g., blog.example.com matches example.com).
// Ports are ignored on both sides.
func IsSameDomain(targetURL string, baseHost string) bool {
	host := strings.ToLower(hostname(targetURL))
	if host == "" {
		return false
	}

	baseHost = strings.ToLower(baseHost)
	if h, _, found := strings.Cut(baseHost, ":"); found {
		baseHost = h
	}

	return host == baseHost || strings.HasSuffix(host, "."+baseHost)
}

// IsHTTPScheme returns true if the URL has an http or https scheme.
// Returns false for empty strings, non-HTTP schemes, or unparseable URLs.
func IsHTTPScheme(rawURL string) bool {
	if rawURL == "" {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "http" || scheme == "https"
}

// Fetchable returns the form of rawURL an HTTP client can request.
// Scheme-less "www." URLs get an https:// prefix; everything else is
// returned as-is.
func Fetchable(rawURL string) string {
	if strings.HasPrefix(rawURL, "www.") {
		return "https://" + rawURL
	}
	return rawURL
}

// ResolveReference resolves a possibly-relative ref URL against a base URL.
// If ref is absolute, it is returned as-is. Otherwise it is resolved
// relative to base using net/url.URL.ResolveReference.
func ResolveReference(base string, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL %q: %w", base, err)
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse ref URL %q: %w", ref, err)
	}

	resolved := baseURL.ResolveReference(refURL)
	return resolved.String(), nil
}

// host returns the host (with port) of an absolute-pattern URL, or "" if it
// cannot be parsed.
func host(rawURL string) string {
	parsed, err := url.Parse(Fetchable(rawURL))
	if err != nil {
		return ""
	}
	return parsed.Host
}

func hostname(rawURL string) string {
	parsed, err := url.Parse(Fetchable(rawURL))
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
