package tracker

import "time"

// Mode distinguishes observer-driven tracking from a click-initiated scroll.
type Mode int

const (
	Idle Mode = iota
	ClickScrolling
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case ClickScrolling:
		return "click_scrolling"
	}
	return "unknown"
}

// State is the tracker state of one sidebar session.
type State struct {
	Mode              Mode
	Active            string    // Active anchor, empty when none
	SuppressUntil     time.Time // Fallback deadline of the current click scroll
	ScrollDetectAfter time.Time // Scrolls before this belong to the smooth scroll
	UserHasScrolled   bool
}

// Policy tunes the tracker.
type Policy struct {
	Zone            Zone
	FallbackTimeout time.Duration
	ScrollDebounce  time.Duration

	// RequireInteraction keeps every entry inactive until the reader has
	// scrolled or clicked an entry at least once.
	RequireInteraction bool
}

// DefaultPolicy returns the stock tuning.
func DefaultPolicy() Policy {
	return Policy{
		Zone:               DefaultZone,
		FallbackTimeout:    500 * time.Millisecond,
		ScrollDebounce:     150 * time.Millisecond,
		RequireInteraction: true,
	}
}

// Event is an input to Transition.
type Event interface{ isEvent() }

// Intersect is an observer batch with fresh geometry for every heading.
type Intersect struct{ Frame Frame }

// Click is the reader activating an outline entry.
type Click struct {
	Anchor string
	At     time.Time
}

// Scroll is a scroll event from the host.
type Scroll struct{ At time.Time }

// FallbackElapsed is the click fallback timer firing.
type FallbackElapsed struct{ At time.Time }

func (Intersect) isEvent()       {}
func (Click) isEvent()           {}
func (Scroll) isEvent()          {}
func (FallbackElapsed) isEvent() {}

// EffectKind enumerates what the driver must do after a transition.
type EffectKind int

const (
	EffectActivate EffectKind = iota
	EffectReveal
	EffectScrollTo
	EffectArmFallback
	EffectCancelFallback
	EffectArmScrollDetector
	EffectRemoveScrollDetector
)

func (k EffectKind) String() string {
	switch k {
	case EffectActivate:
		return "activate"
	case EffectReveal:
		return "reveal"
	case EffectScrollTo:
		return "scroll_to"
	case EffectArmFallback:
		return "arm_fallback"
	case EffectCancelFallback:
		return "cancel_fallback"
	case EffectArmScrollDetector:
		return "arm_scroll_detector"
	case EffectRemoveScrollDetector:
		return "remove_scroll_detector"
	}
	return "unknown"
}

// Effect is a side effect requested by Transition.
type Effect struct {
	Kind   EffectKind
	Anchor string        // Activate, Reveal, ScrollTo
	After  time.Duration // ArmFallback, ArmScrollDetector
}

// Transition is the pure state machine of the tracker.
func Transition(s State, ev Event, p Policy) (State, []Effect) {
	switch e := ev.(type) {
	case Click:
		if e.Anchor == "" {
			return s, nil
		}
		var effects []Effect
		if s.Mode == ClickScrolling {
			effects = append(effects,
				Effect{Kind: EffectCancelFallback},
				Effect{Kind: EffectRemoveScrollDetector},
			)
		}
		s.Mode = ClickScrolling
		s.Active = e.Anchor
		s.UserHasScrolled = true
		s.SuppressUntil = e.At.Add(p.FallbackTimeout)
		s.ScrollDetectAfter = e.At.Add(p.ScrollDebounce)
		effects = append(effects,
			Effect{Kind: EffectActivate, Anchor: e.Anchor},
			Effect{Kind: EffectReveal, Anchor: e.Anchor},
			Effect{Kind: EffectScrollTo, Anchor: e.Anchor},
			Effect{Kind: EffectArmFallback, After: p.FallbackTimeout},
			Effect{Kind: EffectArmScrollDetector, After: p.ScrollDebounce},
		)
		return s, effects

	case Scroll:
		s.UserHasScrolled = true
		if s.Mode == ClickScrolling && !e.At.Before(s.ScrollDetectAfter) {
			return endClickScroll(s)
		}
		return s, nil

	case FallbackElapsed:
		if s.Mode == ClickScrolling && !e.At.Before(s.SuppressUntil) {
			return endClickScroll(s)
		}
		return s, nil

	case Intersect:
		if s.Mode == ClickScrolling {
			return s, nil
		}
		if p.RequireInteraction && !s.UserHasScrolled {
			return s, nil
		}
		anchor, ok := p.Zone.Select(e.Frame)
		if !ok || anchor == s.Active {
			return s, nil
		}
		s.Active = anchor
		return s, []Effect{
			{Kind: EffectActivate, Anchor: anchor},
			{Kind: EffectReveal, Anchor: anchor},
		}
	}
	return s, nil
}

func endClickScroll(s State) (State, []Effect) {
	s.Mode = Idle
	s.SuppressUntil = time.Time{}
	s.ScrollDetectAfter = time.Time{}
	return s, []Effect{
		{Kind: EffectCancelFallback},
		{Kind: EffectRemoveScrollDetector},
	}
}
