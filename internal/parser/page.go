package parser

import (
	"github.com/dgallion1/tocbar/internal/dom"
	"golang.org/x/net/html"
)

// newPage builds an empty page and returns it with its content root.
func newPage(title, rootClass string) (*dom.Document, *html.Node) {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htmlEl := dom.Element("html")
	head := dom.Element("head")
	head.AppendChild(dom.Element("meta", "charset", "utf-8"))
	titleEl := dom.Element("title")
	titleEl.AppendChild(dom.Text(title))
	head.AppendChild(titleEl)
	body := dom.Element("body")
	root := dom.Element("div", "class", rootClass)
	body.AppendChild(root)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	doc.AppendChild(htmlEl)

	return dom.FromNode(doc, rootClass), root
}

// appendHeading appends an h1..h6 element with text.
func appendHeading(parent *html.Node, level int, text string) {
	tag := "h" + string(rune('0'+level))
	h := dom.Element(tag)
	h.AppendChild(dom.Text(text))
	parent.AppendChild(h)
}

// appendBlock appends a block element with text.
func appendBlock(parent *html.Node, tag, text string) {
	el := dom.Element(tag)
	el.AppendChild(dom.Text(text))
	parent.AppendChild(el)
}
