package widget

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/tocbar/internal/dom"
	"github.com/dgallion1/tocbar/internal/i18n"
	"github.com/dgallion1/tocbar/internal/prefs"
	"github.com/dgallion1/tocbar/internal/tracker"
	"golang.org/x/net/html"
)

const page = `<html><head><link rel="stylesheet" href="/static/tocbar.css"></head>` +
	`<body><div class="markdown-body"><h1>Intro</h1><p>x</p><h2 id="setup">Setup</h2><h2>Usage</h2></div></body></html>`

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type stubTimer struct{}

func (stubTimer) Stop() bool { return true }

type stubClock struct{}

func (stubClock) Now() time.Time { return epoch }
func (stubClock) AfterFunc(time.Duration, func()) tracker.Timer { return stubTimer{} }

type fakeHost struct {
	changed func()
	frame   tracker.Frame
}

func (h *fakeHost) Observe(_ []string, changed func()) { h.changed = changed }
func (h *fakeHost) Disconnect() { h.changed = nil }
func (h *fakeHost) Measure([]string) tracker.Frame { return h.frame }

// show reports a frame with anchor's heading in the reading zone.
func (h *fakeHost) show(anchor string) {
	h.frame = tracker.Frame{
		ViewportHeight: 1000,
		Boxes:          []tracker.Box{{Anchor: anchor, Top: 250, Bottom: 290}},
	}
	if h.changed != nil {
		h.changed()
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSession(t *testing.T, src string, store prefs.Store) *Session {
	t.Helper()
	doc, err := dom.Parse(strings.NewReader(src), dom.DefaultContentRootClass)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	policy := tracker.DefaultPolicy()
	policy.RequireInteraction = false
	p := prefs.New(store, "reader", i18n.English, quietLogger())
	return New(context.Background(), doc, p, Options{
		Policy: policy,
		Clock:  stubClock{},
		Logger: quietLogger(),
	})
}

func TestMount_NoContentRootRemovesStylesheet(t *testing.T) {
	src := `<html><head><link rel="stylesheet" href="/static/tocbar.css"></head><body><main><h1>A</h1></main></body></html>`
	s := newSession(t, src, prefs.NewMemoryStore())

	err := s.Mount(context.Background())
	if !errors.Is(err, ErrNoContentRoot) {
		t.Fatalf("expected ErrNoContentRoot, got %v", err)
	}
	out := s.Document().String()
	if strings.Contains(out, "tocbar.css") {
		t.Error("expected stylesheet link to be removed")
	}
	if strings.Contains(out, ToggleID) || strings.Contains(out, PanelClass) {
		t.Error("expected no widget markup")
	}
}

func TestMount_VisibleBuildsPanel(t *testing.T) {
	store := prefs.NewMemoryStore()
	s := newSession(t, page, store)
	if err := s.Mount(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := s.Document()

	root := doc.ContentRoot()
	if first := root.FirstChild; first == nil || dom.Attr(first, "id") != ToggleID {
		t.Error("expected toggle as first child of the content root")
	}
	if !dom.HasClass(root, ClassMaxWidth) {
		t.Errorf("expected content root to carry %s", ClassMaxWidth)
	}
	if first := doc.Body().FirstChild; first == nil || dom.Attr(first, "id") != PanelID {
		t.Error("expected panel as first child of body")
	}

	got := s.Outline().Anchors()
	want := []string{"heading-0", "setup", "heading-2"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected anchors %v, got %v", want, got)
	}
	if doc.ElementByID("heading-0") == nil {
		t.Error("expected generated id written back to the heading")
	}
	if _, ok, _ := store.Get(context.Background(), "readers/reader/toc-sidebar-visibility"); ok {
		t.Error("expected mount not to write visibility")
	}
}

func TestMount_HiddenPreference(t *testing.T) {
	store := prefs.NewMemoryStore()
	store.Set(context.Background(), "readers/reader/toc-sidebar-visibility", "hidden")
	s := newSession(t, page, store)
	if err := s.Mount(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := s.Document()
	if doc.ElementByID(PanelID) != nil {
		t.Error("expected no panel for a hidden sidebar")
	}
	if !dom.HasClass(doc.ElementByID(ToggleID), ClassToggleSide) {
		t.Errorf("expected toggle to carry %s", ClassToggleSide)
	}
	if dom.HasClass(doc.ContentRoot(), ClassMaxWidth) {
		t.Errorf("expected content root without %s", ClassMaxWidth)
	}
	if _, err := s.StartTracking(Host{}); !errors.Is(err, ErrHidden) {
		t.Errorf("expected ErrHidden, got %v", err)
	}
}

func TestNoHeadings(t *testing.T) {
	src := `<html><body><div class="markdown-body"><p>plain</p></div></body></html>`
	s := newSession(t, src, prefs.NewMemoryStore())
	if err := s.Mount(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := s.Document().ElementByID(PlaceholderID)
	if p == nil {
		t.Fatal("expected no-headings placeholder")
	}
	if got := dom.TextContent(p); got != i18n.English.Text(i18n.NoHeadings) {
		t.Errorf("expected placeholder text, got %q", got)
	}
	host := &fakeHost{}
	if _, err := s.StartTracking(Host{Observer: host, Geometry: host}); !errors.Is(err, ErrNoHeadings) {
		t.Errorf("expected ErrNoHeadings, got %v", err)
	}
}

func TestTracking_ActivatesAndRenders(t *testing.T) {
	s := newSession(t, page, prefs.NewMemoryStore())
	s.Mount(context.Background())
	host := &fakeHost{}
	if _, err := s.StartTracking(Host{Observer: host, Geometry: host}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.StartTracking(Host{Observer: host, Geometry: host}); !errors.Is(err, tracker.ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	host.show("setup")
	if got := s.Panel().ActiveAnchor(); got != "setup" {
		t.Fatalf("expected setup active, got %q", got)
	}
	if got := s.Panel().Revealed(); got != "setup" {
		t.Errorf("expected setup revealed in the panel, got %q", got)
	}
	s.Render()
	if !dom.HasClass(s.linkFor("setup"), ClassActive) {
		t.Error("expected active class on setup link")
	}
	if dom.HasClass(s.linkFor("heading-0"), ClassActive) {
		t.Error("expected heading-0 link inactive")
	}

	// Same anchor again: no marker churn.
	marks := s.Panel().Marks()
	host.show("setup")
	if s.Panel().Marks() != marks {
		t.Errorf("expected no re-activation, marks went %d -> %d", marks, s.Panel().Marks())
	}

	if err := s.Click("heading-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Panel().ActiveAnchor() != "heading-2" || s.Panel().ScrolledTo() != "heading-2" {
		t.Errorf("expected click to activate and scroll to heading-2")
	}
	if s.TrackerState().Mode != tracker.ClickScrolling {
		t.Errorf("expected click scrolling, got %s", s.TrackerState().Mode)
	}
}

func TestHideShow_FreshTrackerState(t *testing.T) {
	store := prefs.NewMemoryStore()
	s := newSession(t, page, store)
	ctx := context.Background()
	s.Mount(ctx)
	host := &fakeHost{}
	s.StartTracking(Host{Observer: host, Geometry: host})
	host.show("setup")

	if err := s.Hide(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Panel().ActiveAnchor() != "" {
		t.Error("expected markers cleared on hide")
	}
	if host.changed != nil {
		t.Error("expected observer disconnected on hide")
	}
	if !dom.HasClass(s.Document().ElementByID(PanelID), ClassHidden) {
		t.Errorf("expected panel to carry %s", ClassHidden)
	}
	if v, _, _ := store.Get(ctx, "readers/reader/toc-sidebar-visibility"); v != "hidden" {
		t.Errorf("expected hidden persisted, got %q", v)
	}

	if err := s.Show(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.StartTracking(Host{Observer: host, Geometry: host}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st := s.TrackerState(); st != (tracker.State{}) {
		t.Errorf("expected fresh tracker state, got %+v", st)
	}
	if n := strings.Count(s.Document().String(), `id="`+PanelID+`"`); n != 1 {
		t.Errorf("expected exactly one panel, got %d", n)
	}
}

func TestToggle(t *testing.T) {
	store := prefs.NewMemoryStore()
	s := newSession(t, page, store)
	ctx := context.Background()
	s.Mount(ctx)

	v, err := s.Toggle(ctx)
	if err != nil || v != prefs.Hidden {
		t.Fatalf("expected hidden, got %s (%v)", v, err)
	}
	v, err = s.Toggle(ctx)
	if err != nil || v != prefs.Visible {
		t.Fatalf("expected visible, got %s (%v)", v, err)
	}
	if got, _, _ := store.Get(ctx, "readers/reader/toc-sidebar-visibility"); got != "visible" {
		t.Errorf("expected visible persisted, got %q", got)
	}
}

func TestSetLanguage(t *testing.T) {
	store := prefs.NewMemoryStore()
	s := newSession(t, page, store)
	ctx := context.Background()
	s.Mount(ctx)

	if err := s.SetLanguage(ctx, "xx"); !errors.Is(err, i18n.ErrUnsupportedLocale) {
		t.Errorf("expected ErrUnsupportedLocale, got %v", err)
	}
	if err := s.SetLanguage(ctx, "de"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := s.Document().String()
	if !strings.Contains(out, i18n.German.Text(i18n.SidebarHeader)) {
		t.Error("expected German header")
	}
	if strings.Count(out, `id="`+PanelID+`"`) != 1 {
		t.Error("expected the panel to be replaced, not duplicated")
	}
	if got, _, _ := store.Get(ctx, "readers/reader/toc-sidebar-language"); got != "de" {
		t.Errorf("expected de persisted, got %q", got)
	}
}

func TestStopTrackingIf_OnlyStopsOwnTracker(t *testing.T) {
	s := newSession(t, page, prefs.NewMemoryStore())
	s.Mount(context.Background())
	first := &fakeHost{}
	old, err := s.StartTracking(Host{Observer: first, Geometry: first})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A replacement connection takes over the session.
	s.StopTracking()
	second := &fakeHost{}
	current, err := s.StartTracking(Host{Observer: second, Geometry: second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.StopTrackingIf(old) {
		t.Error("expected stale handle not to stop the current tracker")
	}
	if s.StopTrackingIf(nil) {
		t.Error("expected nil handle to be ignored")
	}
	second.show("setup")
	if got := s.Panel().ActiveAnchor(); got != "setup" {
		t.Fatalf("expected current tracker still running, active %q", got)
	}
	if !s.StopTrackingIf(current) {
		t.Error("expected current handle to stop its tracker")
	}
	if err := s.Click("setup"); !errors.Is(err, tracker.ErrNotRunning) {
		t.Errorf("expected ErrNotRunning after stop, got %v", err)
	}
}

func TestLanguageSwitcher(t *testing.T) {
	s := newSession(t, page, prefs.NewMemoryStore())
	ctx := context.Background()
	s.Mount(ctx)

	sel := s.Document().ElementByID(LanguageID)
	if sel == nil {
		t.Fatal("expected language switcher in the panel")
	}
	var codes, names []string
	var selected string
	for o := sel.FirstChild; o != nil; o = o.NextSibling {
		codes = append(codes, dom.Attr(o, "value"))
		names = append(names, dom.TextContent(o))
		for _, a := range o.Attr {
			if a.Key == "selected" {
				selected = dom.Attr(o, "value")
			}
		}
	}
	if strings.Join(codes, ",") != "en,ru,de,es" {
		t.Errorf("expected every supported locale, got %v", codes)
	}
	if names[0] != i18n.English.Name() || names[1] != i18n.Russian.Name() {
		t.Errorf("expected locales listed by their own names, got %v", names)
	}
	if selected != "en" {
		t.Errorf("expected en selected, got %q", selected)
	}
	if !strings.Contains(s.PanelHTML(), i18n.English.Text(i18n.LanguageLabel)) {
		t.Error("expected switcher labelled with the language label")
	}

	s.SetLanguage(ctx, "ru")
	out := s.PanelHTML()
	if !strings.Contains(out, i18n.Russian.Text(i18n.LanguageLabel)) || !strings.Contains(out, i18n.Russian.Text(i18n.SidebarHeader)) {
		t.Error("expected panel re-rendered in Russian")
	}
}

func TestNotMounted(t *testing.T) {
	s := newSession(t, page, prefs.NewMemoryStore())
	if err := s.Show(context.Background()); !errors.Is(err, ErrNotMounted) {
		t.Errorf("expected ErrNotMounted, got %v", err)
	}
	if err := s.Click("setup"); !errors.Is(err, tracker.ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func (s *Session) linkFor(anchor string) *html.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links[anchor]
}
