package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/dgallion1/tocbar/internal/dom"
	"github.com/dgallion1/tocbar/internal/doctree"
	"github.com/dgallion1/tocbar/internal/i18n"
	"github.com/dgallion1/tocbar/internal/outline"
	"github.com/dgallion1/tocbar/internal/parser"
	"github.com/dgallion1/tocbar/internal/widget"
	"github.com/go-chi/chi/v5"
)

var (
	errDocNotFound    = errors.New("document not found")
	errDocTooLarge    = errors.New("document too large")
	errDocUnsupported = errors.New("unsupported document type")
)

// loadDocument reads and parses a document below the docs directory.
func (s *Server) loadDocument(rel string) (*dom.Document, string, error) {
	clean := path.Clean("/" + rel)[1:]
	if clean == "" {
		return nil, "", errDocNotFound
	}
	if !parser.IsSupportedExtension(clean) {
		return nil, "", fmt.Errorf("%w: %s", errDocUnsupported, filepath.Ext(clean))
	}

	f, err := os.Open(filepath.Join(s.cfg.DocsDir, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", errDocNotFound
		}
		return nil, "", fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxDocumentBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxDocumentBytes {
		return nil, "", errDocTooLarge
	}

	p, err := parser.ForFile(clean, parser.Options{
		RootClass:            s.cfg.ContentRootClass,
		PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errDocUnsupported, err)
	}
	doc, err := p.Parse(bytes.NewReader(data), clean)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", clean, err)
	}
	return doc, clean, nil
}

func documentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errDocNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, errDocTooLarge):
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, errDocUnsupported):
		jsonError(w, err.Error(), http.StatusUnsupportedMediaType)
	default:
		jsonError(w, "failed to load document", http.StatusInternalServerError)
	}
}

// handleDocument renders a document with the sidebar mounted.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, rel, err := s.loadDocument(chi.URLParam(r, "*"))
	if err != nil {
		if !errors.Is(err, errDocNotFound) {
			s.log.Warn("load document", "path", r.URL.Path, "error", err)
		}
		documentError(w, err)
		return
	}

	readerID := s.readerID(w, r)
	ctx := r.Context()
	log := s.log.With("reader_id", readerID, "doc", rel)

	addStylesheet(doc, "/static/"+s.cfg.StylesheetHref)
	ws := widget.New(ctx, doc, s.preferences(r, readerID), widget.Options{
		Stylesheet: s.cfg.StylesheetHref,
		Policy:     s.policy(),
		Clock:      s.clock,
		Logger:     log,
	})
	switch err := ws.Mount(ctx); {
	case errors.Is(err, widget.ErrNoContentRoot):
		log.Debug("no content root, serving page without sidebar")
	case err != nil:
		log.Error("mount widget", "error", err)
	default:
		entry := s.sessions.Add(readerID, rel, ws)
		addScript(doc, "/static/tocbar.js", entry.ID)
		log.Debug("session registered", "session_id", entry.ID)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := doc.Render(w); err != nil {
		log.Error("render document", "error", err)
	}
}

func addStylesheet(doc *dom.Document, href string) {
	if head := doc.Head(); head != nil {
		head.AppendChild(dom.Element("link", "rel", "stylesheet", "href", href))
	}
}

func addScript(doc *dom.Document, src, sessionID string) {
	if body := doc.Body(); body != nil {
		body.AppendChild(dom.Element("script", "src", src, "data-session", sessionID, "defer", ""))
	}
}

// outlineNode is the JSON form of an outline item. Bare nested containers
// have no anchor.
type outlineNode struct {
	Level    int           `json:"level,omitempty"`
	Label    string        `json:"label,omitempty"`
	Anchor   string        `json:"anchor,omitempty"`
	Children []outlineNode `json:"children,omitempty"`
}

func outlineJSON(l *doctree.List) []outlineNode {
	if l == nil {
		return nil
	}
	out := make([]outlineNode, 0, len(l.Items))
	for _, it := range l.Items {
		if it.List != nil {
			out = append(out, outlineNode{Children: outlineJSON(it.List)})
			continue
		}
		out = append(out, outlineNode{
			Level:    it.Node.Level,
			Label:    it.Node.Label,
			Anchor:   it.Node.AnchorID,
			Children: outlineJSON(it.Node.Children),
		})
	}
	return out
}

// handleOutline returns the outline of a document as JSON.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	doc, rel, err := s.loadDocument(chi.URLParam(r, "*"))
	if err != nil {
		documentError(w, err)
		return
	}
	headings := dom.AsHeadings(doc.Headings())
	outline.AssignAnchors(headings)
	o := outline.Build(headings)

	lang := s.preferences(r, s.readerID(w, r)).Load(r.Context()).Language
	resp := map[string]any{
		"document": rel,
		"title":    doc.Title(),
		"empty":    o.Empty(),
		"count":    o.Count(),
		"header":   lang.Text(i18n.SidebarHeader),
		"nodes":    outlineJSON(o.Root),
	}
	if o.Empty() {
		resp["placeholder"] = lang.Text(i18n.NoHeadings)
		resp["nodes"] = []outlineNode{}
	}
	writeJSON(w, http.StatusOK, resp)
}
