// Package render re-emits forum records as markup for the new skin.
package render

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fragment is detached markup: sibling nodes with no parent, ready to be attached by the caller.
type Fragment struct {
	Nodes []*html.Node
}

// Render writes the fragment as HTML.
func (f Fragment) Render(w io.Writer) error {
	for _, n := range f.Nodes {
		if err := html.Render(w, n); err != nil {
			return err
		}
	}
	return nil
}

// String renders the fragment for logs and tests. A render error yields "";
// callers that need the error use Render.
func (f Fragment) String() string {
	var b strings.Builder
	if err := f.Render(&b); err != nil {
		return ""
	}
	return b.String()
}

// element builds a detached element. attrs are key/value pairs.
func element(tag string, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func appendChildren(parent *html.Node, children ...*html.Node) *html.Node {
	for _, c := range children {
		parent.AppendChild(c)
	}
	return parent
}

// wrap builds an element holding a single text node.
func wrap(tag, s string, attrs ...string) *html.Node {
	return appendChildren(element(tag, attrs...), text(s))
}

// markup parses a passthrough string into nodes. Unparseable input is kept as text.
func markup(s string) []*html.Node {
	nodes, err := html.ParseFragment(strings.NewReader(s), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return []*html.Node{text(s)}
	}
	return nodes
}
