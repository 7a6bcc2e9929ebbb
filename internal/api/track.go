package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/dgallion1/tocbar/internal/i18n"
	"github.com/dgallion1/tocbar/internal/session"
	"github.com/dgallion1/tocbar/internal/tracker"
	"github.com/dgallion1/tocbar/internal/widget"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// clientMessage is sent by the browser.
type clientMessage struct {
	Type     string         `json:"type"` // intersect, click, scroll, show, hide, language
	Anchor   string         `json:"anchor,omitempty"`
	Frame    *tracker.Frame `json:"frame,omitempty"`
	Language string         `json:"language,omitempty"`
}

// serverMessage is sent to the browser.
type serverMessage struct {
	Type   string `json:"type"` // activate, clear, reveal, scroll_to, panel, error
	Anchor string `json:"anchor,omitempty"`
	Error  string `json:"error,omitempty"`

	// panel messages carry the re-rendered sidebar.
	HTML        string `json:"html,omitempty"`
	Language    string `json:"language,omitempty"`
	ToggleLabel string `json:"toggle_label,omitempty"`
}

// trackConn adapts one websocket to the tracker's host interfaces: the
// browser's observer batches arrive as intersect messages carrying the
// measured frame, and tracker effects go back as commands.
type trackConn struct {
	conn *websocket.Conn
	log  *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	frame   tracker.Frame
	changed func()
	owned   *tracker.Tracker
}

var (
	_ tracker.Observer  = (*trackConn)(nil)
	_ tracker.Geometry  = (*trackConn)(nil)
	_ tracker.Presenter = (*trackConn)(nil)
)

func (c *trackConn) Observe(_ []string, changed func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changed = changed
}

func (c *trackConn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changed = nil
}

func (c *trackConn) Measure([]string) tracker.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

func (c *trackConn) Activate(anchor string) { c.send(serverMessage{Type: "activate", Anchor: anchor}) }
func (c *trackConn) ClearActive() { c.send(serverMessage{Type: "clear"}) }
func (c *trackConn) Reveal(anchor string) { c.send(serverMessage{Type: "reveal", Anchor: anchor}) }
func (c *trackConn) ScrollTo(anchor string) { c.send(serverMessage{Type: "scroll_to", Anchor: anchor}) }

func (c *trackConn) send(msg serverMessage) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.Debug("websocket write", "type", msg.Type, "error", err)
	}
}

// intersect records a fresh frame and notifies the tracker, if attached.
func (c *trackConn) intersect(f tracker.Frame) {
	c.mu.Lock()
	c.frame = f
	changed := c.changed
	c.mu.Unlock()
	if changed != nil {
		changed()
	}
}

func (c *trackConn) setOwned(t *tracker.Tracker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owned = t
}

// release stops the tracker this connection started, unless a newer
// connection has already replaced it.
func (c *trackConn) release(ws *widget.Session) {
	c.mu.Lock()
	t := c.owned
	c.owned = nil
	c.mu.Unlock()
	if t != nil && ws.StopTrackingIf(t) {
		c.log.Debug("tracking stopped")
	}
}

func (c *trackConn) host() widget.Host {
	return widget.Host{Observer: c, Geometry: c, Presenter: c}
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if origin == "http://"+r.Host || origin == "https://"+r.Host {
				return true
			}
			for _, pattern := range s.cfg.AllowedOrigins {
				if ok, _ := path.Match(pattern, origin); ok || pattern == "*" {
					return true
				}
			}
			return false
		},
	}
}

// handleTrack streams a page's tracker over a websocket.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	entry := s.sessions.Get(sessionID)
	if entry == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	log := s.log.With("session_id", sessionID)
	tc := &trackConn{conn: conn, log: log}
	ctx := context.WithoutCancel(r.Context())
	ws := entry.Widget

	entry.Acquire()
	defer entry.Release()

	// A reconnecting page replaces the previous connection's tracker.
	ws.StopTracking()
	s.startTracking(ws, tc, log)
	defer tc.release(ws)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read", "error", err)
			}
			return
		}
		entry.Touch()

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			tc.send(serverMessage{Type: "error", Error: "invalid message format"})
			continue
		}
		s.dispatch(ctx, entry, tc, msg, log)
	}
}

func (s *Server) dispatch(ctx context.Context, entry *session.Entry, tc *trackConn, msg clientMessage, log *slog.Logger) {
	ws := entry.Widget
	switch msg.Type {
	case "intersect":
		if msg.Frame != nil {
			tc.intersect(*msg.Frame)
		}
	case "click":
		if err := ws.Click(msg.Anchor); err != nil && !errors.Is(err, tracker.ErrNotRunning) {
			log.Warn("click", "anchor", msg.Anchor, "error", err)
		}
	case "scroll":
		ws.Scroll()
	case "show":
		if err := ws.Show(ctx); err != nil {
			log.Warn("show sidebar", "error", err)
			return
		}
		s.startTracking(ws, tc, log)
	case "hide":
		if err := ws.Hide(ctx); err != nil {
			log.Warn("hide sidebar", "error", err)
		}
	case "language":
		if err := ws.SetLanguage(ctx, msg.Language); err != nil {
			tc.send(serverMessage{Type: "error", Error: err.Error()})
			return
		}
		lang := ws.Language()
		tc.send(serverMessage{
			Type:        "panel",
			HTML:        ws.PanelHTML(),
			Language:    string(lang),
			ToggleLabel: lang.Text(i18n.ToggleLabel),
		})
	default:
		tc.send(serverMessage{Type: "error", Error: "unknown message type " + msg.Type})
	}
}

func (s *Server) startTracking(ws *widget.Session, tc *trackConn, log *slog.Logger) {
	t, err := ws.StartTracking(tc.host())
	switch {
	case err == nil:
		tc.setOwned(t)
		log.Debug("tracking started")
	case errors.Is(err, widget.ErrHidden), errors.Is(err, widget.ErrNoHeadings):
		log.Debug("tracking not started", "reason", err.Error())
	default:
		log.Warn("start tracking", "error", err)
	}
}
