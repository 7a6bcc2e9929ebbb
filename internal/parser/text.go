package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/tocbar/internal/dom"
)

// TextParser handles plain text files. Paragraphs are separated by blank
// lines; plain text has no headings.
type TextParser struct {
	RootClass string
}

func (p *TextParser) Parse(r io.Reader, filename string) (*dom.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	doc, root := newPage(titleFromFilename(filename), p.RootClass)
	for _, para := range paragraphs {
		appendBlock(root, "p", para)
	}
	return doc, nil
}
