package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/tocbar/internal/assets"
	"github.com/dgallion1/tocbar/internal/config"
	"github.com/dgallion1/tocbar/internal/prefs"
	"github.com/dgallion1/tocbar/internal/session"
	"github.com/dgallion1/tocbar/internal/tracker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server is the HTTP API server for tocbar.
type Server struct {
	router   chi.Router
	store    prefs.Store
	sessions *session.Registry
	clock    tracker.Clock
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(store prefs.Store, sessions *session.Registry, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:    store,
		sessions: sessions,
		clock:    tracker.SystemClock{},
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(assets.Static()))))

	r.Get("/docs/*", s.handleDocument)
	r.Get("/api/outline/*", s.handleOutline)

	r.Get("/api/prefs", s.handleGetPrefs)
	r.Put("/api/prefs/visibility", s.handlePutVisibility)
	r.Put("/api/prefs/language", s.handlePutLanguage)

	r.Get("/ws/track/{sessionID}", s.handleTrack)

	if s.cfg.AdminAPIKey != "" {
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(s.cfg.AdminAPIKey, s.log))
			r.Get("/api/sessions", s.handleListSessions)
		})
	}

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	readerID := r.URL.Query().Get("reader_id")
	if readerID == "" {
		jsonError(w, "reader_id query parameter is required", http.StatusBadRequest)
		return
	}
	out := []session.Snapshot{}
	for _, e := range s.sessions.ForReader(readerID) {
		out = append(out, e.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
