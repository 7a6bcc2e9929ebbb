package widget

import (
	"sync"

	"github.com/dgallion1/tocbar/internal/doctree"
	"github.com/dgallion1/tocbar/internal/tracker"
)

// EntryState is the highlight state of one outline entry.
type EntryState int

const (
	Inactive EntryState = iota
	Active
)

func (s EntryState) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// Panel is the presentation model of the sidebar's entries. It holds state
// only; Session.Render maps it onto the page.
type Panel struct {
	mu       sync.Mutex
	order    []string
	entries  map[string]EntryState
	revealed string
	scrolled string
	marks    int
}

var _ tracker.Presenter = (*Panel)(nil)

func newPanel(o doctree.Outline) *Panel {
	p := &Panel{entries: make(map[string]EntryState)}
	for _, a := range o.Anchors() {
		p.order = append(p.order, a)
		p.entries[a] = Inactive
	}
	return p
}

// Activate clears every marker and marks anchor.
func (p *Panel) Activate(anchor string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[anchor]; !ok {
		return
	}
	p.clearLocked()
	p.entries[anchor] = Active
	p.marks++
}

func (p *Panel) ClearActive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
}

func (p *Panel) Reveal(anchor string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revealed = anchor
}

func (p *Panel) ScrollTo(anchor string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolled = anchor
}

func (p *Panel) clearLocked() {
	for a := range p.entries {
		p.entries[a] = Inactive
	}
}

// State returns the state of the entry for anchor.
func (p *Panel) State(anchor string) EntryState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entries[anchor]
}

// ActiveAnchor returns the marked anchor, or "".
func (p *Panel) ActiveAnchor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.order {
		if p.entries[a] == Active {
			return a
		}
	}
	return ""
}

// Marks counts how often an entry was marked active.
func (p *Panel) Marks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marks
}

// Revealed returns the last anchor scrolled into view inside the panel.
func (p *Panel) Revealed() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revealed
}

// ScrolledTo returns the last heading the document was scrolled to.
func (p *Panel) ScrolledTo() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrolled
}

// presenters fans tracker effects out to several presenters.
type presenters []tracker.Presenter

func (ps presenters) Activate(anchor string) {
	for _, p := range ps {
		p.Activate(anchor)
	}
}

func (ps presenters) ClearActive() {
	for _, p := range ps {
		p.ClearActive()
	}
}

func (ps presenters) Reveal(anchor string) {
	for _, p := range ps {
		p.Reveal(anchor)
	}
}

func (ps presenters) ScrollTo(anchor string) {
	for _, p := range ps {
		p.ScrollTo(anchor)
	}
}
