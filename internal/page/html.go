package page

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ItemIDPrefix marks element ids that belong to list items.
const ItemIDPrefix = "item-"

// ExtractRegions parses a full document and returns the inner HTML of each
// element whose id is listed. Ids not found in the document are absent
// from the result.
func ExtractRegions(doc []byte, ids ...string) (map[string]string, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	out := make(map[string]string, len(ids))
	var renderErr error

	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		id := attr(n, "id")
		if !want[id] {
			return true
		}
		if _, seen := out[id]; seen {
			// First occurrence wins, as with getElementById.
			return true
		}
		inner, err := innerHTML(n)
		if err != nil {
			renderErr = err
			return false
		}
		out[id] = inner
		return true
	})

	if renderErr != nil {
		return nil, renderErr
	}
	return out, nil
}

// InnerHTML returns the inner HTML of the element with the given id.
func InnerHTML(doc []byte, id string) (string, bool, error) {
	regions, err := ExtractRegions(doc, id)
	if err != nil {
		return "", false, err
	}
	inner, ok := regions[id]
	return inner, ok, nil
}

// ItemIDs returns the ids of item elements in a fragment, in document order.
func ItemIDs(fragment string) ([]string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}

	var ids []string
	for _, n := range nodes {
		walk(n, func(n *html.Node) bool {
			if n.Type == html.ElementNode {
				if id := attr(n, "id"); strings.HasPrefix(id, ItemIDPrefix) {
					ids = append(ids, id)
				}
			}
			return true
		})
	}
	return ids, nil
}

// walk visits n and its descendants depth first until visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func innerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render %s: %w", attr(n, "id"), err)
		}
	}
	return buf.String(), nil
}
