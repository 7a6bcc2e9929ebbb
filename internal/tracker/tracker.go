// Package tracker keeps the outline's active entry in step with the
// reader's position in the document.
package tracker

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
)

var (
	ErrAlreadyRunning = errors.New("tracker already running")
	ErrNotRunning     = errors.New("tracker not running")
	ErrNothingToTrack = errors.New("no headings to track")
)

// Observer reports that heading visibility changed. Implementations must
// deliver notifications asynchronously, never from inside Observe.
type Observer interface {
	Observe(anchors []string, changed func())
	Disconnect()
}

// Geometry measures the live boxes of the given headings.
type Geometry interface {
	Measure(anchors []string) Frame
}

// Presenter reflects tracker decisions onto the outline.
type Presenter interface {
	// Activate clears the active marker from every entry, then marks anchor.
	Activate(anchor string)
	// ClearActive removes every active marker.
	ClearActive()
	// Reveal scrolls the outline's own list just enough to show anchor.
	Reveal(anchor string)
	// ScrollTo smooth-scrolls the document to the heading.
	ScrollTo(anchor string)
}

// Tracker drives Transition from observer batches, clicks, scrolls and
// timers. Every entry point is serialized by one mutex, so callbacks run
// one at a time as on a single event loop.
type Tracker struct {
	mu     sync.Mutex
	policy Policy
	clock  Clock
	obs    Observer
	geo    Geometry
	view   Presenter
	log    *slog.Logger

	running  bool
	anchors  []string
	state    State
	fallback Timer
	timerGen uint64
	detector bool
}

// New creates a stopped tracker.
func New(policy Policy, clock Clock, obs Observer, geo Geometry, view Presenter, log *slog.Logger) *Tracker {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		policy: policy,
		clock:  clock,
		obs:    obs,
		geo:    geo,
		view:   view,
		log:    log,
	}
}

// Start attaches the observer to every heading with a fresh state.
func (t *Tracker) Start(anchors []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrAlreadyRunning
	}
	if len(anchors) == 0 {
		return ErrNothingToTrack
	}
	t.running = true
	t.anchors = slices.Clone(anchors)
	t.state = State{}
	t.detector = false
	t.obs.Observe(t.anchors, t.onChanged)
	t.log.Debug("tracker started", "headings", len(anchors))
	return nil
}

// Stop detaches the observer, cancels timers and clears every marker.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return ErrNotRunning
	}
	t.running = false
	t.obs.Disconnect()
	t.cancelFallbackLocked()
	t.detector = false
	t.state = State{}
	t.anchors = nil
	t.view.ClearActive()
	t.log.Debug("tracker stopped")
	return nil
}

// Click handles the reader activating an outline entry. Anchors that are not
// tracked are ignored.
func (t *Tracker) Click(anchor string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return ErrNotRunning
	}
	if !slices.Contains(t.anchors, anchor) {
		t.log.Debug("click on unknown anchor ignored", "anchor", anchor)
		return nil
	}
	t.dispatchLocked(Click{Anchor: anchor, At: t.clock.Now()})
	return nil
}

// Scroll handles a scroll event from the host.
func (t *Tracker) Scroll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.dispatchLocked(Scroll{At: t.clock.Now()})
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Running reports whether the observer is attached.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// ScrollDetectorArmed reports whether the one-shot manual scroll detector is
// listening.
func (t *Tracker) ScrollDetectorArmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.detector
}

func (t *Tracker) onChanged() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	frame := t.geo.Measure(t.anchors)
	t.dispatchLocked(Intersect{Frame: frame})
}

func (t *Tracker) onFallback(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running || gen != t.timerGen {
		return
	}
	t.fallback = nil
	t.dispatchLocked(FallbackElapsed{At: t.clock.Now()})
}

func (t *Tracker) dispatchLocked(ev Event) {
	prev := t.state.Mode
	next, effects := Transition(t.state, ev, t.policy)
	t.state = next
	if prev != next.Mode {
		t.log.Debug("tracker mode changed", "from", prev.String(), "to", next.Mode.String())
	}
	for _, e := range effects {
		t.applyLocked(e)
	}
}

func (t *Tracker) applyLocked(e Effect) {
	switch e.Kind {
	case EffectActivate:
		t.view.Activate(e.Anchor)
	case EffectReveal:
		t.view.Reveal(e.Anchor)
	case EffectScrollTo:
		t.view.ScrollTo(e.Anchor)
	case EffectArmFallback:
		t.cancelFallbackLocked()
		gen := t.timerGen
		t.fallback = t.clock.AfterFunc(e.After, func() { t.onFallback(gen) })
	case EffectCancelFallback:
		t.cancelFallbackLocked()
	case EffectArmScrollDetector:
		t.detector = true
	case EffectRemoveScrollDetector:
		t.detector = false
	}
}

func (t *Tracker) cancelFallbackLocked() {
	t.timerGen++
	if t.fallback != nil {
		t.fallback.Stop()
		t.fallback = nil
	}
}
