package api

import (
	"net/http"
	"time"

	"github.com/dgallion1/tocbar/internal/i18n"
	"github.com/dgallion1/tocbar/internal/prefs"
	"github.com/dgallion1/tocbar/internal/tracker"
	"github.com/google/uuid"
)

const readerCookie = "tocbar_reader"

// readerID returns the reader's id from its cookie, issuing a new one when
// the cookie is missing or malformed.
func (s *Server) readerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(readerCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     readerCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// preferences binds the store to a reader. The fallback language comes from
// Accept-Language, then the configured default.
func (s *Server) preferences(r *http.Request, readerID string) *prefs.Preferences {
	def, err := i18n.Parse(s.cfg.DefaultLanguage)
	if err != nil {
		def = i18n.English
	}
	lang := i18n.Detect(r.Header.Get("Accept-Language"), def)
	return prefs.New(s.store, readerID, lang, s.log)
}

func (s *Server) policy() tracker.Policy {
	return tracker.Policy{
		Zone:               tracker.Zone{Top: s.cfg.ZoneTop, Bottom: s.cfg.ZoneBottom},
		FallbackTimeout:    s.cfg.FallbackTimeout,
		ScrollDebounce:     s.cfg.ScrollDebounce,
		RequireInteraction: s.cfg.RequireInteraction,
	}
}
