// Package widget mounts the table-of-contents sidebar into a document and
// owns one reader's sidebar session.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dgallion1/tocbar/internal/doctree"
	"github.com/dgallion1/tocbar/internal/dom"
	"github.com/dgallion1/tocbar/internal/i18n"
	"github.com/dgallion1/tocbar/internal/outline"
	"github.com/dgallion1/tocbar/internal/prefs"
	"github.com/dgallion1/tocbar/internal/tracker"
	"golang.org/x/net/html"
)

var (
	ErrNoHeadings    = errors.New("document has no headings")
	ErrNoContentRoot = errors.New("document has no content root")
	ErrNotMounted    = errors.New("widget not mounted")
	ErrHidden        = errors.New("sidebar is hidden")
)

// DefaultStylesheet is the href suffix of the widget's stylesheet link.
const DefaultStylesheet = "tocbar.css"

// Options configures a Session.
type Options struct {
	// Stylesheet is removed from pages without a content root.
	Stylesheet string
	Policy     tracker.Policy
	Clock      tracker.Clock
	Logger     *slog.Logger
}

// Host connects a running tracker to the reader's live page.
type Host struct {
	Observer  tracker.Observer
	Geometry  tracker.Geometry
	Presenter tracker.Presenter // optional, receives effects after the panel
}

// Session is one reader's sidebar over one document.
type Session struct {
	mu    sync.Mutex
	doc   *dom.Document
	prefs *prefs.Preferences
	opts  Options
	log   *slog.Logger

	lang       i18n.Locale
	visibility prefs.Visibility
	mounted    bool

	outline   doctree.Outline
	panel     *Panel
	toggle    *html.Node
	panelNode *html.Node
	links     map[string]*html.Node
	tracker   *tracker.Tracker
}

// New creates a session and reads the reader's preferences once.
func New(ctx context.Context, doc *dom.Document, p *prefs.Preferences, opts Options) *Session {
	if opts.Stylesheet == "" {
		opts.Stylesheet = DefaultStylesheet
	}
	if opts.Policy == (tracker.Policy{}) {
		opts.Policy = tracker.DefaultPolicy()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	settings := p.Load(ctx)
	return &Session{
		doc:        doc,
		prefs:      p,
		opts:       opts,
		log:        log,
		lang:       settings.Language,
		visibility: settings.Visibility,
	}
}

// Mount inserts the toggle control and, unless the reader hid the sidebar,
// the panel. A page without a content root loses the widget stylesheet and
// is otherwise left untouched.
func (s *Session) Mount(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounted {
		return nil
	}
	root := s.doc.ContentRoot()
	if root == nil {
		if s.doc.RemoveStylesheet(s.opts.Stylesheet) {
			s.log.Debug("removed widget stylesheet", "href", s.opts.Stylesheet)
		}
		return ErrNoContentRoot
	}
	s.toggle = buildToggle(s.lang)
	dom.PrependChild(root, s.toggle)
	s.mounted = true

	if s.visibility == prefs.Visible {
		s.showLocked(ctx, false)
	}
	s.renderLocked()
	return nil
}

// Show builds the panel on first use and makes it visible.
func (s *Session) Show(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrNotMounted
	}
	s.showLocked(ctx, true)
	s.renderLocked()
	return nil
}

func (s *Session) showLocked(ctx context.Context, persist bool) {
	if s.panelNode == nil {
		headings := dom.AsHeadings(s.doc.Headings())
		outline.AssignAnchors(headings)
		s.outline = outline.Build(headings)
		s.panel = newPanel(s.outline)
		s.insertPanelLocked()
		s.log.Debug("sidebar built", "entries", s.outline.Count())
	}
	s.visibility = prefs.Visible
	if persist {
		s.prefs.SaveVisibility(ctx, prefs.Visible)
	}
}

func (s *Session) insertPanelLocked() {
	body := s.doc.Body()
	if body == nil {
		return
	}
	s.panelNode, s.links = buildPanel(s.outline, s.lang)
	dom.PrependChild(body, s.panelNode)
}

// Hide stops tracking and hides the panel.
func (s *Session) Hide(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrNotMounted
	}
	s.stopTrackingLocked()
	s.visibility = prefs.Hidden
	s.prefs.SaveVisibility(ctx, prefs.Hidden)
	s.renderLocked()
	return nil
}

// Toggle flips visibility and returns the new state.
func (s *Session) Toggle(ctx context.Context) (prefs.Visibility, error) {
	if s.Visibility() == prefs.Visible {
		return prefs.Hidden, s.Hide(ctx)
	}
	return prefs.Visible, s.Show(ctx)
}

// SetLanguage switches the widget strings and persists the choice.
func (s *Session) SetLanguage(ctx context.Context, code string) error {
	lang, err := i18n.Parse(code)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lang = lang
	s.prefs.SaveLanguage(ctx, lang)
	if s.toggle != nil {
		label := lang.Text(i18n.ToggleLabel)
		dom.SetAttr(s.toggle, "aria-label", label)
		dom.SetAttr(s.toggle, "title", label)
	}
	if s.panelNode != nil {
		old := s.panelNode
		s.panelNode, s.links = buildPanel(s.outline, s.lang)
		old.Parent.InsertBefore(s.panelNode, old)
		dom.Detach(old)
	}
	s.renderLocked()
	return nil
}

// StartTracking attaches a tracker with fresh state to the visible panel
// and returns it as the caller's handle for StopTrackingIf.
func (s *Session) StartTracking(h Host) (*tracker.Tracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.mounted:
		return nil, ErrNotMounted
	case s.visibility != prefs.Visible || s.panel == nil:
		return nil, ErrHidden
	case s.outline.Empty():
		return nil, ErrNoHeadings
	}
	if s.tracker != nil && s.tracker.Running() {
		return nil, tracker.ErrAlreadyRunning
	}

	view := presenters{s.panel}
	if h.Presenter != nil {
		view = append(view, h.Presenter)
	}
	t := tracker.New(s.opts.Policy, s.opts.Clock, h.Observer, h.Geometry, view, s.log)
	if err := t.Start(s.outline.Anchors()); err != nil {
		return nil, fmt.Errorf("start tracker: %w", err)
	}
	s.tracker = t
	return t, nil
}

// StopTracking detaches the tracker and discards its state.
func (s *Session) StopTracking() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return tracker.ErrNotRunning
	}
	s.stopTrackingLocked()
	return nil
}

// StopTrackingIf stops the tracker only while t is still the session's
// current one, and reports whether it did.
func (s *Session) StopTrackingIf(t *tracker.Tracker) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t == nil || s.tracker != t {
		return false
	}
	s.stopTrackingLocked()
	return true
}

func (s *Session) stopTrackingLocked() {
	if s.tracker == nil {
		return
	}
	if err := s.tracker.Stop(); err != nil && !errors.Is(err, tracker.ErrNotRunning) {
		s.log.Warn("stop tracker", "error", err)
	}
	s.tracker = nil
}

// Click forwards an outline click to the tracker.
func (s *Session) Click(anchor string) error {
	t := s.activeTracker()
	if t == nil {
		return tracker.ErrNotRunning
	}
	return t.Click(anchor)
}

// Scroll forwards a document scroll to the tracker.
func (s *Session) Scroll() {
	if t := s.activeTracker(); t != nil {
		t.Scroll()
	}
}

func (s *Session) activeTracker() *tracker.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker
}

// Render maps session state onto the page's classes.
func (s *Session) Render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderLocked()
}

func (s *Session) renderLocked() {
	if !s.mounted {
		return
	}
	visible := s.visibility == prefs.Visible && s.panelNode != nil
	if root := s.doc.ContentRoot(); root != nil {
		dom.SetClass(root, ClassMaxWidth, visible)
	}
	dom.SetClass(s.toggle, ClassToggleSide, !visible)
	if s.panelNode != nil {
		dom.SetClass(s.panelNode, ClassHidden, !visible)
	}
	if s.panel != nil {
		for anchor, a := range s.links {
			dom.SetClass(a, ClassActive, s.panel.State(anchor) == Active)
		}
	}
}

// Visibility returns the current sidebar visibility.
func (s *Session) Visibility() prefs.Visibility {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibility
}

// Language returns the current widget language.
func (s *Session) Language() i18n.Locale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// Outline returns the built outline; it is empty until the panel is shown.
func (s *Session) Outline() doctree.Outline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outline
}

// Panel returns the panel model, or nil before the first Show.
func (s *Session) Panel() *Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panel
}

// TrackerState returns the running tracker's state, or the zero state.
func (s *Session) TrackerState() tracker.State {
	if t := s.activeTracker(); t != nil {
		return t.State()
	}
	return tracker.State{}
}

// PanelHTML renders the panel as it stands, or "" before the first Show.
func (s *Session) PanelHTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panelNode == nil {
		return ""
	}
	s.renderLocked()
	var buf strings.Builder
	if err := html.Render(&buf, s.panelNode); err != nil {
		s.log.Warn("render panel", "error", err)
		return ""
	}
	return buf.String()
}

// Document returns the page the widget is mounted into.
func (s *Session) Document() *dom.Document { return s.doc }
