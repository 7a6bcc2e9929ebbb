package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/tocbar/internal/dom"
)

// Parser converts raw document bytes into a page with a content root.
type Parser interface {
	Parse(r io.Reader, filename string) (*dom.Document, error)
}

// Options apply to every parser.
type Options struct {
	RootClass            string // Class of the generated content root
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	if opts.RootClass == "" {
		opts.RootClass = dom.DefaultContentRootClass
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{RootClass: opts.RootClass}, nil
	case ".md", ".markdown":
		return NewMarkdownParser(opts.RootClass), nil
	case ".html", ".htm":
		return &HTMLParser{RootClass: opts.RootClass}, nil
	case ".pdf":
		return &PDFParser{RootClass: opts.RootClass, FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{RootClass: opts.RootClass}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// titleFromFilename strips the directory and extension.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
