// Package dom is the source document surface the widget works against: a
// parsed HTML tree with a designated content root.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dgallion1/tocbar/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultContentRootClass marks the element holding the rendered document.
const DefaultContentRootClass = "markdown-body"

// Document is a parsed HTML page.
type Document struct {
	root      *html.Node
	rootClass string
}

// Parse reads a complete HTML page.
func Parse(r io.Reader, rootClass string) (*Document, error) {
	n, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return FromNode(n, rootClass), nil
}

// FromNode wraps an already parsed tree.
func FromNode(n *html.Node, rootClass string) *Document {
	if rootClass == "" {
		rootClass = DefaultContentRootClass
	}
	return &Document{root: n, rootClass: rootClass}
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the <body> element, or nil.
func (d *Document) Body() *html.Node {
	return findElement(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
}

// Head returns the <head> element, or nil.
func (d *Document) Head() *html.Node {
	return findElement(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Head })
}

// Title returns the text of <title>, or "".
func (d *Document) Title() string {
	t := findElement(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Title })
	if t == nil {
		return ""
	}
	return TextContent(t)
}

// SetTitle replaces the text of <title>, creating it under <head> if needed.
func (d *Document) SetTitle(title string) {
	t := findElement(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Title })
	if t == nil {
		head := d.Head()
		if head == nil {
			return
		}
		t = Element("title")
		head.AppendChild(t)
	}
	for t.FirstChild != nil {
		t.RemoveChild(t.FirstChild)
	}
	t.AppendChild(Text(title))
}

// ContentRoot returns the direct child of <body> carrying the content root
// class, or nil when the page has none.
func (d *Document) ContentRoot() *html.Node {
	body := d.Body()
	if body == nil {
		return nil
	}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && HasClass(c, d.rootClass) {
			return c
		}
	}
	return nil
}

// Headings returns h1..h6 elements inside the content root in document
// order.
func (d *Document) Headings() []*Heading {
	root := d.ContentRoot()
	if root == nil {
		return nil
	}
	var out []*Heading
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := HeadingLevel(n.Data); level > 0 {
				out = append(out, &Heading{node: n, level: level})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

// RemoveStylesheet removes every <link> whose href ends with
// suffix and reports whether one was found.
func (d *Document) RemoveStylesheet(suffix string) bool {
	var links []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Link && strings.HasSuffix(Attr(n, "href"), suffix) {
			links = append(links, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	for _, l := range links {
		l.Parent.RemoveChild(l)
	}
	return len(links) > 0
}

// ElementByID returns the element with the given id, or nil.
func (d *Document) ElementByID(id string) *html.Node {
	if id == "" {
		return nil
	}
	return findElement(d.root, func(n *html.Node) bool { return Attr(n, "id") == id })
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning "" on error.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Heading is a heading element of the document.
type Heading struct {
	node  *html.Node
	level int
}

var _ doctree.Heading = (*Heading)(nil)

func (h *Heading) Level() int { return h.level }
func (h *Heading) Text() string { return TextContent(h.node) }
func (h *Heading) ID() string { return Attr(h.node, "id") }
func (h *Heading) SetID(id string) { SetAttr(h.node, "id", id) }
func (h *Heading) Node() *html.Node { return h.node }

// AsHeadings converts to the outline builder's input.
func AsHeadings(hs []*Heading) []doctree.Heading {
	out := make([]doctree.Heading, len(hs))
	for i, h := range hs {
		out[i] = h
	}
	return out
}

// HeadingLevel returns 1..6 for h1..h6 tags and 0 otherwise.
func HeadingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// TextContent concatenates all text below n, trimmed.
func TextContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

// Attr returns the value of attribute key, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets or replaces attribute key.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// HasClass reports whether n carries class c.
func HasClass(n *html.Node, c string) bool {
	return slices.Contains(strings.Fields(Attr(n, "class")), c)
}

// SetClass adds or removes class c.
func SetClass(n *html.Node, c string, on bool) {
	classes := strings.Fields(Attr(n, "class"))
	has := slices.Contains(classes, c)
	switch {
	case on && !has:
		classes = append(classes, c)
	case !on && has:
		classes = slices.DeleteFunc(classes, func(s string) bool { return s == c })
	default:
		return
	}
	SetAttr(n, "class", strings.Join(classes, " "))
}

// Element creates an element node. attrs are key/value pairs.
func Element(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Text creates a text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// PrependChild inserts child as the first child of parent.
func PrependChild(parent, child *html.Node) {
	if parent.FirstChild == nil {
		parent.AppendChild(child)
		return
	}
	parent.InsertBefore(child, parent.FirstChild)
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
