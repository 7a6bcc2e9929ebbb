// Package session keeps the live widget sessions of connected readers.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/tocbar/internal/prefs"
	"github.com/dgallion1/tocbar/internal/tracker"
	"github.com/dgallion1/tocbar/internal/widget"
	"github.com/google/uuid"
)

// Entry is one rendered document page and its widget session.
type Entry struct {
	mu sync.Mutex

	ID       string
	ReaderID string
	DocPath  string
	Widget   *widget.Session

	CreatedAt time.Time
	touchedAt time.Time
	conns     int
}

// Touch marks the entry as in use.
func (e *Entry) Touch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touchedAt = time.Now()
}

// Acquire pins the entry for an open tracking connection. A pinned entry
// is never evicted, however long the reader sits idle.
func (e *Entry) Acquire() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conns++
	e.touchedAt = time.Now()
}

// Release drops a pin taken by Acquire. The idle clock restarts from now.
func (e *Entry) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conns > 0 {
		e.conns--
	}
	e.touchedAt = time.Now()
}

// idleSince reports when the entry was last used and whether a
// connection currently holds it.
func (e *Entry) idleSince() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.touchedAt, e.conns > 0
}

// Snapshot is a JSON-safe view of an entry.
type Snapshot struct {
	ID        string    `json:"session_id"`
	ReaderID  string    `json:"reader_id"`
	DocPath   string    `json:"doc_path"`
	Visible   bool      `json:"visible"`
	Language  string    `json:"language"`
	Active    string    `json:"active_anchor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (e *Entry) Snapshot() Snapshot {
	return Snapshot{
		ID:        e.ID,
		ReaderID:  e.ReaderID,
		DocPath:   e.DocPath,
		Visible:   e.Widget.Visibility() == prefs.Visible,
		Language:  string(e.Widget.Language()),
		Active:    e.Widget.TrackerState().Active,
		CreatedAt: e.CreatedAt,
	}
}

// Registry is a thread-safe in-memory session registry with TTL eviction.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Entry
	ttl      time.Duration
	log      *slog.Logger
}

func NewRegistry(ttl time.Duration, log *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Entry),
		ttl:      ttl,
		log:      log,
	}
}

// Add registers a widget session under a new id.
func (r *Registry) Add(readerID, docPath string, w *widget.Session) *Entry {
	now := time.Now()
	e := &Entry{
		ID:        uuid.NewString(),
		ReaderID:  readerID,
		DocPath:   docPath,
		Widget:    w,
		CreatedAt: now,
		touchedAt: now,
	}
	r.mu.Lock()
	r.sessions[e.ID] = e
	r.mu.Unlock()
	return e
}

// Get returns the entry for id, or nil.
func (r *Registry) Get(id string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// ForReader returns every session of a reader.
func (r *Registry) ForReader(readerID string) []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Entry
	for _, e := range r.sessions {
		if e.ReaderID == readerID {
			out = append(out, e)
		}
	}
	return out
}

// Remove drops the session and stops its tracker.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if e != nil {
		r.stop(e)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Cleanup removes sessions idle for longer than the TTL. Sessions with an
// open tracking connection are kept.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	now := time.Now()
	var expired []*Entry
	for id, e := range r.sessions {
		touched, pinned := e.idleSince()
		if !pinned && now.Sub(touched) > r.ttl {
			expired = append(expired, e)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, e := range expired {
		r.stop(e)
	}
	if len(expired) > 0 {
		r.log.Info("evicted idle sessions", "count", len(expired))
	}
	return len(expired)
}

// Run evicts idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cleanup()
		}
	}
}

func (r *Registry) stop(e *Entry) {
	if err := e.Widget.StopTracking(); err != nil && !errors.Is(err, tracker.ErrNotRunning) {
		r.log.Warn("stop tracking", "session_id", e.ID, "error", err)
	}
}
