package crawler

import (
	"strings"

	"golang.org/x/net/html"
)

// LinkExtractor returns the raw href values found in page content, in
// document order. Values are not resolved, filtered or deduplicated.
type LinkExtractor interface {
	ExtractLinks(content string) []string
}

// LinkExtractorFunc adapts a function to the LinkExtractor interface.
type LinkExtractorFunc func(content string) []string

// ExtractLinks calls f.
func (f LinkExtractorFunc) ExtractLinks(content string) []string {
	return f(content)
}

// HTMLExtractor extracts the href of every anchor tag in an HTML document.
type HTMLExtractor struct{}

// ExtractLinks tokenizes content and collects anchor hrefs. Malformed markup
// is tolerated; extraction stops at the first tokenizer error or EOF.
func (HTMLExtractor) ExtractLinks(content string) []string {
	tokenizer := html.NewTokenizer(strings.NewReader(content))
	var links []string

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key == "href" {
					links = append(links, attr.Val)
					break
				}
			}
		}
	}
}
