package tracker

import (
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeClock struct {
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock { return &fakeClock{now: t0} }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	tm := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, tm)
	return tm
}

// Advance moves the clock forward, firing due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	target := c.now.Add(d)
	for {
		sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at.Before(c.timers[j].at) })
		var next *fakeTimer
		for _, tm := range c.timers {
			if !tm.stopped && !tm.fired && !tm.at.After(target) {
				next = tm
				break
			}
		}
		if next == nil {
			break
		}
		c.now = next.at
		next.fired = true
		next.f()
	}
	c.now = target
}

func (c *fakeClock) pending() int {
	n := 0
	for _, tm := range c.timers {
		if !tm.stopped && !tm.fired {
			n++
		}
	}
	return n
}

type fakeHost struct {
	changed   func()
	observing []string
	frame     Frame

	observeCalls    int
	disconnectCalls int

	activated []string
	cleared   int
	revealed  []string
	scrolled  []string
}

func (h *fakeHost) Observe(anchors []string, changed func()) {
	h.observeCalls++
	h.observing = anchors
	h.changed = changed
}

func (h *fakeHost) Disconnect() {
	h.disconnectCalls++
	h.observing = nil
}

func (h *fakeHost) Measure(anchors []string) Frame { return h.frame }

func (h *fakeHost) Activate(anchor string) { h.activated = append(h.activated, anchor) }
func (h *fakeHost) ClearActive()           { h.cleared++ }
func (h *fakeHost) Reveal(anchor string)   { h.revealed = append(h.revealed, anchor) }
func (h *fakeHost) ScrollTo(anchor string) { h.scrolled = append(h.scrolled, anchor) }

// batch delivers an observer notification with the given heading at top.
func (h *fakeHost) batch(anchor string, top float64) {
	h.frame = Frame{ViewportHeight: 1000, Boxes: []Box{{Anchor: anchor, Top: top, Bottom: top + 30}}}
	h.changed()
}

func newTestTracker(p Policy) (*Tracker, *fakeHost, *fakeClock) {
	host := &fakeHost{}
	clock := newFakeClock()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(p, clock, host, host, host, log), host, clock
}

var anchors = []string{"heading-0", "heading-1", "heading-2"}

func TestTracker_StartGuardsReentry(t *testing.T) {
	tr, host, _ := newTestTracker(DefaultPolicy())
	if err := tr.Start(anchors); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Start(anchors); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
	if host.observeCalls != 1 {
		t.Errorf("expected observer attached once, got %d", host.observeCalls)
	}
}

func TestTracker_StartWithoutHeadings(t *testing.T) {
	tr, host, _ := newTestTracker(DefaultPolicy())
	if err := tr.Start(nil); !errors.Is(err, ErrNothingToTrack) {
		t.Errorf("expected ErrNothingToTrack, got %v", err)
	}
	if tr.Running() || host.observeCalls != 0 {
		t.Error("expected tracker to stay stopped")
	}
}

func TestTracker_StopWhenStopped(t *testing.T) {
	tr, _, _ := newTestTracker(DefaultPolicy())
	if err := tr.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
	if err := tr.Click("heading-0"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning from click, got %v", err)
	}
}

func TestTracker_ObserverDrivesActive(t *testing.T) {
	tr, host, _ := newTestTracker(DefaultPolicy())
	tr.Start(anchors)

	host.batch("heading-0", 250)
	if len(host.activated) != 0 {
		t.Fatalf("expected nothing highlighted before first scroll, got %v", host.activated)
	}

	tr.Scroll()
	host.batch("heading-0", 250)
	host.batch("heading-0", 240)
	host.batch("heading-1", 260)

	want := []string{"heading-0", "heading-1"}
	if len(host.activated) != len(want) {
		t.Fatalf("expected activations %v, got %v", want, host.activated)
	}
	for i := range want {
		if host.activated[i] != want[i] || host.revealed[i] != want[i] {
			t.Errorf("activation %d: expected %q, got %q / %q", i, want[i], host.activated[i], host.revealed[i])
		}
	}
}

func TestTracker_ClickSuppressesObserverThenResumes(t *testing.T) {
	tr, host, clock := newTestTracker(DefaultPolicy())
	tr.Start(anchors)
	tr.Scroll()
	host.batch("heading-0", 250)

	if err := tr.Click("heading-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.State().Active; got != "heading-2" {
		t.Fatalf("expected active heading-2 right after click, got %q", got)
	}
	if len(host.scrolled) != 1 || host.scrolled[0] != "heading-2" {
		t.Errorf("expected smooth scroll to heading-2, got %v", host.scrolled)
	}
	if !tr.ScrollDetectorArmed() {
		t.Error("expected the scroll detector to be armed")
	}

	// The smooth scroll passes heading-1 through the zone.
	clock.Advance(100 * time.Millisecond)
	host.batch("heading-1", 250)
	if got := tr.State().Active; got != "heading-2" {
		t.Fatalf("expected observer to be suppressed, got %q", got)
	}

	clock.Advance(400 * time.Millisecond)
	if tr.State().Mode != Idle {
		t.Fatalf("expected fallback timer to end the click scroll, got %v", tr.State().Mode)
	}
	if tr.ScrollDetectorArmed() {
		t.Error("expected the scroll detector to be removed")
	}

	host.batch("heading-1", 250)
	if got := tr.State().Active; got != "heading-1" {
		t.Errorf("expected observer updates to resume, got %q", got)
	}
}

func TestTracker_ManualScrollEndsClickScroll(t *testing.T) {
	tr, _, clock := newTestTracker(DefaultPolicy())
	tr.Start(anchors)
	tr.Click("heading-1")

	clock.Advance(50 * time.Millisecond)
	tr.Scroll()
	if tr.State().Mode != ClickScrolling {
		t.Fatal("expected early scroll to count as the smooth scroll")
	}

	clock.Advance(150 * time.Millisecond)
	tr.Scroll()
	if tr.State().Mode != Idle {
		t.Fatalf("expected idle after manual scroll, got %v", tr.State().Mode)
	}
	if clock.pending() != 0 {
		t.Errorf("expected fallback timer cancelled, %d pending", clock.pending())
	}
}

func TestTracker_ClickUnknownAnchorIgnored(t *testing.T) {
	tr, host, _ := newTestTracker(DefaultPolicy())
	tr.Start(anchors)
	if err := tr.Click("stale"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.activated) != 0 || tr.State().Mode != Idle {
		t.Error("expected click on stale anchor to do nothing")
	}
}

func TestTracker_ClickAlreadyActiveStillUpdates(t *testing.T) {
	tr, host, _ := newTestTracker(DefaultPolicy())
	tr.Start(anchors)
	tr.Scroll()
	host.batch("heading-0", 250)
	tr.Click("heading-0")
	if len(host.activated) != 2 {
		t.Errorf("expected forced re-activation, got %v", host.activated)
	}
}

func TestTracker_StopClearsAndRestartIsFresh(t *testing.T) {
	tr, host, clock := newTestTracker(DefaultPolicy())
	tr.Start(anchors)
	tr.Click("heading-1")

	if err := tr.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host.disconnectCalls != 1 {
		t.Errorf("expected observer disconnected once, got %d", host.disconnectCalls)
	}
	if host.cleared != 1 {
		t.Errorf("expected markers cleared once, got %d", host.cleared)
	}
	if clock.pending() != 0 {
		t.Errorf("expected no pending timers after stop, got %d", clock.pending())
	}

	// A late notification from the detached observer is ignored.
	host.changed()
	if len(host.activated) != 1 {
		t.Errorf("expected no activation after stop, got %v", host.activated)
	}

	if err := tr.Start(anchors); err != nil {
		t.Fatalf("unexpected error on restart: %v", err)
	}
	s := tr.State()
	if s.Active != "" || s.Mode != Idle || s.UserHasScrolled {
		t.Errorf("expected fresh state after restart, got %+v", s)
	}
}
