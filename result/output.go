package result

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// WriteJSON writes the tree as nested {"url", "children"} objects.
func WriteJSON(w io.Writer, root *Page) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}

// WriteCSV writes one row per page in depth-first order.
// Column order: depth, url, parent. The root has an empty parent.
func WriteCSV(w io.Writer, root *Page) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"depth", "url", "parent"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	var writeErr error
	var visit func(page *Page, parent string, depth int)
	visit = func(page *Page, parent string, depth int) {
		if writeErr != nil {
			return
		}
		if err := cw.Write([]string{strconv.Itoa(depth), page.URL, parent}); err != nil {
			writeErr = fmt.Errorf("write csv record for %s: %w", page.URL, err)
			return
		}
		for _, child := range page.children {
			visit(child, page.URL, depth+1)
		}
	}
	visit(root, "", 0)
	if writeErr != nil {
		return writeErr
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}
