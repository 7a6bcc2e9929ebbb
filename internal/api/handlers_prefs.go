package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/tocbar/internal/i18n"
	"github.com/dgallion1/tocbar/internal/prefs"
)

type prefsResponse struct {
	Visibility  string `json:"visibility"`
	Language    string `json:"language"`
	LanguageSet bool   `json:"language_set"`
	Persisted   *bool  `json:"persisted,omitempty"`
}

func (s *Server) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	readerID := s.readerID(w, r)
	st := s.preferences(r, readerID).Load(r.Context())
	writeJSON(w, http.StatusOK, prefsResponse{
		Visibility:  st.Visibility.String(),
		Language:    string(st.Language),
		LanguageSet: st.LanguageSet,
	})
}

func (s *Server) handlePutVisibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Visibility string `json:"visibility"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	v, err := prefs.ParseVisibility(req.Visibility)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	readerID := s.readerID(w, r)
	p := s.preferences(r, readerID)
	ok := p.SaveVisibility(r.Context(), v)
	st := p.Load(r.Context())
	writeJSON(w, http.StatusOK, prefsResponse{
		Visibility:  v.String(),
		Language:    string(st.Language),
		LanguageSet: st.LanguageSet,
		Persisted:   &ok,
	})
}

func (s *Server) handlePutLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	lang, err := i18n.Parse(req.Language)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	readerID := s.readerID(w, r)
	p := s.preferences(r, readerID)
	ok := p.SaveLanguage(r.Context(), lang)

	st := p.Load(r.Context())
	writeJSON(w, http.StatusOK, prefsResponse{
		Visibility:  st.Visibility.String(),
		Language:    string(lang),
		LanguageSet: true,
		Persisted:   &ok,
	})
}
