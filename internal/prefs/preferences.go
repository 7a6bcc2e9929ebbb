package prefs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/tocbar/internal/i18n"
)

const (
	VisibilityKey = "toc-sidebar-visibility"
	LanguageKey   = "toc-sidebar-language"
)

// Visibility is the persisted sidebar state.
type Visibility int

const (
	Visible Visibility = iota
	Hidden
)

func (v Visibility) String() string {
	if v == Hidden {
		return "hidden"
	}
	return "visible"
}

// ParseVisibility accepts "visible" or "hidden".
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "visible":
		return Visible, nil
	case "hidden":
		return Hidden, nil
	}
	return Visible, fmt.Errorf("invalid visibility %q", s)
}

// Settings is what a reader has stored.
type Settings struct {
	Visibility Visibility
	Language   i18n.Locale
	// LanguageSet is false when Language came from the fallback.
	LanguageSet bool
}

// Preferences reads and writes one reader's settings. Store failures are
// logged and never returned; reads fall back to defaults.
type Preferences struct {
	store    Store
	readerID string
	fallback i18n.Locale
	log      *slog.Logger
}

func New(store Store, readerID string, fallback i18n.Locale, log *slog.Logger) *Preferences {
	return &Preferences{
		store:    store,
		readerID: readerID,
		fallback: fallback,
		log:      log.With("reader_id", readerID),
	}
}

func (p *Preferences) key(name string) string {
	return "readers/" + p.readerID + "/" + name
}

// Load reads both settings. Anything missing, invalid or unreadable is
// replaced by its default: visible and the fallback language.
func (p *Preferences) Load(ctx context.Context) Settings {
	s := Settings{Visibility: Visible, Language: p.fallback}

	if v, ok := p.get(ctx, VisibilityKey); ok && v == "hidden" {
		s.Visibility = Hidden
	}
	if v, ok := p.get(ctx, LanguageKey); ok {
		if l, err := i18n.Parse(v); err == nil {
			s.Language = l
			s.LanguageSet = true
		} else {
			p.log.Warn("ignoring stored language", "value", v)
		}
	}
	return s
}

// SaveVisibility persists v and reports whether the write succeeded.
func (p *Preferences) SaveVisibility(ctx context.Context, v Visibility) bool {
	return p.set(ctx, VisibilityKey, v.String())
}

// SaveLanguage persists l and reports whether the write succeeded.
func (p *Preferences) SaveLanguage(ctx context.Context, l i18n.Locale) bool {
	return p.set(ctx, LanguageKey, string(l))
}

func (p *Preferences) get(ctx context.Context, name string) (string, bool) {
	v, ok, err := p.store.Get(ctx, p.key(name))
	if err != nil {
		p.log.Error(p.fallback.Text(i18n.StoreReadFailed), "key", name, "error", err)
		return "", false
	}
	return v, ok
}

func (p *Preferences) set(ctx context.Context, name, value string) bool {
	if err := p.store.Set(ctx, p.key(name), value); err != nil {
		p.log.Error(p.fallback.Text(i18n.StoreWriteFailed), "key", name, "error", err)
		return false
	}
	return true
}
