package result

import (
	"encoding/json"
	"errors"
	"sync"
)

// ErrAlreadyPopulated is returned when a Page's children are set twice.
var ErrAlreadyPopulated = errors.New("page children already populated")

// Page is one node of the crawl tree: a canonical URL and the in-scope pages
// linked from it, in document order. Children are set at most once.
type Page struct {
	URL string

	once     sync.Once
	children []*Page
}

// NewPage creates a Page for url. When children are given the page is
// returned already populated with them.
func NewPage(url string, children ...*Page) *Page {
	p := &Page{URL: url}
	if len(children) > 0 {
		_ = p.Populate(children)
	}
	return p
}

// Populate sets the page's children. Only the first call has any effect;
// later calls return ErrAlreadyPopulated.
func (p *Page) Populate(children []*Page) error {
	err := ErrAlreadyPopulated
	p.once.Do(func() {
		p.children = append([]*Page(nil), children...)
		err = nil
	})
	return err
}

// Children returns a copy of the page's children.
func (p *Page) Children() []*Page {
	return append([]*Page(nil), p.children...)
}

// String returns the page URL.
func (p *Page) String() string {
	return p.URL
}

// Walk visits p and its descendants depth-first in child order. The root is
// at depth 0.
func (p *Page) Walk(fn func(page *Page, depth int)) {
	p.walk(fn, 0)
}

func (p *Page) walk(fn func(page *Page, depth int), depth int) {
	fn(p, depth)
	for _, child := range p.children {
		child.walk(fn, depth+1)
	}
}

// Count returns the number of pages in the tree rooted at p.
func (p *Page) Count() int {
	n := 0
	p.Walk(func(*Page, int) { n++ })
	return n
}

// Height returns the depth of the deepest page below p (0 for a leaf).
func (p *Page) Height() int {
	height := 0
	p.Walk(func(_ *Page, depth int) {
		height = max(height, depth)
	})
	return height
}

type pageJSON struct {
	URL      string  `json:"url"`
	Children []*Page `json:"children"`
}

// MarshalJSON encodes the page as {"url": ..., "children": [...]}.
func (p *Page) MarshalJSON() ([]byte, error) {
	children := p.children
	if children == nil {
		children = []*Page{}
	}
	return json.Marshal(pageJSON{URL: p.URL, Children: children})
}
