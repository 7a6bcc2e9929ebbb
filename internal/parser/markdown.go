package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dgallion1/tocbar/internal/dom"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MarkdownParser renders Markdown with goldmark into the content root.
// Headings keep ids given with {#id} attributes; the rest are assigned by
// the outline builder.
type MarkdownParser struct {
	RootClass string
	md        goldmark.Markdown
}

func NewMarkdownParser(rootClass string) *MarkdownParser {
	return &MarkdownParser{
		RootClass: rootClass,
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
			goldmark.WithParserOptions(
				gmparser.WithAttribute(),
			),
			goldmark.WithRendererOptions(
				gmhtml.WithUnsafe(),
			),
		),
	}
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*dom.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := p.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	nodes, err := html.ParseFragment(&buf, &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div})
	if err != nil {
		return nil, fmt.Errorf("parse rendered markdown: %w", err)
	}

	doc, root := newPage(titleFromFilename(filename), p.RootClass)
	for _, n := range nodes {
		root.AppendChild(n)
	}

	// The first top-level heading names the page.
	if hs := doc.Headings(); len(hs) > 0 && hs[0].Level() == 1 {
		doc.SetTitle(hs[0].Text())
	}
	return doc, nil
}
