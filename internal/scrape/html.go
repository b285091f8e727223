package scrape

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// tableRows returns the tr elements under the tbody of root matching table,
// optionally restricted to rows carrying rowClass.
func tableRows(root *html.Node, table func(*html.Node) bool, rowClass string) []*html.Node {
	var rows []*html.Node
	for _, t := range findAll(root, table) {
		for _, body := range findAll(t, isElement(atom.Tbody)) {
			for _, tr := range findAll(body, isElement(atom.Tr)) {
				if rowClass == "" || hasClass(tr, rowClass) {
					rows = append(rows, tr)
				}
			}
		}
	}
	return rows
}

// parseDocument parses an HTML page.
func parseDocument(body []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(body))
}

// cells returns the td children of a row.
func cells(tr *html.Node) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Td {
			out = append(out, c)
		}
	}
	return out
}

// findAll returns every descendant of n matching pred, in document order.
// Matches are not searched further.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if pred(c) {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if found := findAll(n, pred); len(found) > 0 {
		return found[0]
	}
	return nil
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

func hasID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	}
}

func tableWithClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Table && hasClass(n, class)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// text returns the trimmed text content of n with inner whitespace collapsed.
func text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// cellPtr returns the text of a cell, or nil when it is empty.
func cellPtr(n *html.Node) *string {
	s := text(n)
	if s == "" {
		return nil
	}
	return &s
}
