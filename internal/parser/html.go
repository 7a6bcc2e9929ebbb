package parser

import (
	"io"

	"github.com/dgallion1/tocbar/internal/dom"
)

// HTMLParser handles already rendered HTML pages. The page is kept as is;
// pages without a content root are served without the widget.
type HTMLParser struct {
	RootClass string
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*dom.Document, error) {
	doc, err := dom.Parse(r, p.RootClass)
	if err != nil {
		return nil, err
	}
	if doc.Title() == "" {
		doc.SetTitle(titleFromFilename(filename))
	}
	return doc, nil
}
