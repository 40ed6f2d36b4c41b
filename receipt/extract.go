package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ErrRegionMissing is returned when the page has no element matching the
// receipt selector.
var ErrRegionMissing = errors.New("receipt region not found")

// Extract parses a rendered page and returns the inner markup of the first
// element matching selector.
func Extract(pageHTML, selector string) (string, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", fmt.Errorf("receipt selector %q: %w", selector, err)
	}

	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return "", err
	}

	node := cascadia.Query(doc, sel)
	if node == nil {
		return "", fmt.Errorf("%w: %s", ErrRegionMissing, selector)
	}

	var buf bytes.Buffer
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&buf, child); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// Document wraps receipt markup in a standalone HTML page for printing.
func Document(inner string) string {
	return `<!DOCTYPE html><html><head><meta charset="utf-8"><title>Receipt</title>` +
		`<style>body{font-family:Helvetica,Arial,sans-serif;margin:2em}#parts div{margin:.2em 0}</style>` +
		`</head><body>` + inner + `</body></html>`
}
