// Package urlutil decides which links belong to a crawl and turns them into
// the absolute URLs used as page identities.
package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidSeed is returned when a seed URL does not start with http://,
// https:// or www., or has no host.
var ErrInvalidSeed = errors.New("seed URL must have an http://, https:// or www. prefix")

// Scope holds the target domain of a crawl and resolves raw hrefs against it.
// The zero value is not usable; build one with NewScope.
type Scope struct {
	domain string // seed host with "www." removed, port kept
	root   string // <scheme>://<domain>/
	strict bool
}

// NewScope derives the crawl domain from seed. With strict set, absolute
// links must be on the domain or one of its subdomains; otherwise any host
// containing the domain as a substring is accepted.
func NewScope(seed string, strict bool) (Scope, error) {
	if !IsAbsolute(seed) {
		return Scope{}, fmt.Errorf("scope %q: %w", seed, ErrInvalidSeed)
	}

	parsed, err := url.Parse(Fetchable(seed))
	if err != nil {
		return Scope{}, fmt.Errorf("parse seed URL %q: %w", seed, err)
	}
	if parsed.Host == "" {
		return Scope{}, fmt.Errorf("scope %q: %w", seed, ErrInvalidSeed)
	}

	domain := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")

	return Scope{
		domain: domain,
		root:   strings.ToLower(parsed.Scheme) + "://" + domain + "/",
		strict: strict,
	}, nil
}

// Domain returns the target domain, e.g. "example.com".
func (s Scope) Domain() string {
	return s.domain
}

// Root returns the URL that domain-relative links are resolved against.
func (s Scope) Root() string {
	return s.root
}

// Resolve returns the canonical absolute URL for href and true if href is in
// scope. Absolute links on the domain are returned unchanged; links starting
// with "/" are resolved against Root with surrounding slashes stripped.
// Everything else (relative paths, mailto:, javascript:, fragments) is out of
// scope.
func (s Scope) Resolve(href string) (string, bool) {
	if href == "" {
		return "", false
	}

	if IsAbsolute(href) {
		return href, s.contains(href)
	}

	if !strings.HasPrefix(href, "/") {
		return "", false
	}

	resolved, err := ResolveReference(s.root, strings.Trim(href, "/"))
	if err != nil || !strings.HasPrefix(resolved, s.root) {
		return "", false
	}
	return resolved, true
}

func (s Scope) contains(href string) bool {
	if s.strict {
		return IsSameDomain(href, s.domain)
	}
	h := host(href)
	return h != "" && strings.Contains(strings.ToLower(h), s.domain)
}
