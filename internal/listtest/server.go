// Package listtest provides an in-process fake of the list server for tests.
//
// The fake serves the page, fragment, JSON and mutation routes the client
// consumes, plus the /ws socket, and records every request it sees.
package listtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rickgao/listsync/internal/model"
)

// DefaultPage is served on GET / unless replaced.
const DefaultPage = `<!doctype html>
<html><body>
<div id="stats">1/2</div>
<div id="sections-list"><section id="section-1"><div id="item-1">Milk</div><div id="item-2">Bread</div></section></div>
<div id="manage-sections-list"><li>Dairy</li></div>
</body></html>`

// DefaultSectionsList is served on GET /sections/list unless replaced.
const DefaultSectionsList = `<li>Dairy</li>`

// Request is a recorded request.
type Request struct {
	Method string
	Path   string
	Form   url.Values
	Header http.Header
}

// Server is a fake list server.
type Server struct {
	*httptest.Server

	t        testing.TB
	upgrader websocket.Upgrader

	mu            sync.Mutex
	password      string
	requireAuth   bool
	sessions      map[string]bool
	stats         model.StatsSummary
	prefs         model.Preferences
	page          string
	sectionsList  string
	status        map[string]int
	hxRedirect    map[string]string
	requests      []Request
	conns         []*peer
	wsConnects    int
	rejectWS      bool
	answerPing    bool
	received      chan []byte
	connectSignal chan struct{}
}

// peer serializes writes to one socket.
type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *peer) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// NewServer starts a fake server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		t:             t,
		upgrader:      websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		password:      "shopping123",
		sessions:      make(map[string]bool),
		stats:         model.StatsSummary{TotalItems: 2, CompletedItems: 1, Percentage: 50},
		prefs:         model.Preferences{MobileHelper: model.MobileHelperButton},
		page:          DefaultPage,
		sectionsList:  DefaultSectionsList,
		status:        make(map[string]int),
		hxRedirect:    make(map[string]string),
		answerPing:    true,
		received:      make(chan []byte, 100),
		connectSignal: make(chan struct{}, 100),
	}

	r := mux.NewRouter()
	r.Use(s.record, s.authenticate, s.override)

	r.HandleFunc("/", s.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/sections/list", s.handleSectionsList).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/preferences", s.handlePreferences).Methods(http.MethodGet)
	r.HandleFunc("/preferences/toggle-mobile-helper", s.handleToggleMobileHelper).Methods(http.MethodPost)
	r.HandleFunc("/sections/batch-delete", s.handleOK).Methods(http.MethodPost)
	r.HandleFunc("/items/{id:[0-9]+}/uncertain", s.handleOK).Methods(http.MethodPost)
	r.HandleFunc("/items/{id:[0-9]+}/move", s.handleOK).Methods(http.MethodPost)
	r.HandleFunc("/items/{id:[0-9]+}", s.handleOK).Methods(http.MethodPut, http.MethodDelete)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWS)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)

	return s
}

// Close drops live sockets and shuts the server down.
func (s *Server) Close() {
	s.DropConnections()
	s.Server.Close()
}

// RequireAuth turns on session checking for every route but /login.
func (s *Server) RequireAuth(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireAuth = on
}

// SetStats replaces the stats served on GET /stats.
func (s *Server) SetStats(stats model.StatsSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

// SetPage replaces the HTML served on GET /.
func (s *Server) SetPage(html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = html
}

// SetSectionsList replaces the HTML served on GET /sections/list.
func (s *Server) SetSectionsList(html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sectionsList = html
}

// SetStatus makes METHOD path answer with code instead of its normal response.
// A zero code clears the override.
func (s *Server) SetStatus(method, path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.status, method+" "+path)
		return
	}
	s.status[method+" "+path] = code
}

// SetHXRedirect makes METHOD path answer 200 with an HX-Redirect header.
func (s *Server) SetHXRedirect(method, path, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hxRedirect[method+" "+path] = location
}

// RejectWebSockets makes /ws refuse upgrades.
func (s *Server) RejectWebSockets(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectWS = on
}

// AnswerPings controls whether the socket replies to ping with pong.
func (s *Server) AnswerPings(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answerPing = on
}

// Requests returns a copy of every recorded request.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount counts recorded requests matching method and path.
func (s *Server) RequestCount(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// LastRequest returns the most recent request matching method and path.
func (s *Server) LastRequest(method, path string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

// WebSocketConnects returns how many sockets were upgraded so far.
func (s *Server) WebSocketConnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wsConnects
}

// WaitForConnects blocks until n sockets have been upgraded in total.
func (s *Server) WaitForConnects(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for s.WebSocketConnects() < n {
		select {
		case <-s.connectSignal:
		case <-deadline:
			return false
		}
	}
	return true
}

// Received returns frames clients sent on the socket.
func (s *Server) Received() <-chan []byte {
	return s.received
}

// Broadcast sends {"type": msgType, "data": data} to every live socket.
func (s *Server) Broadcast(msgType string, data any) {
	msg := map[string]any{"type": msgType}
	if data != nil {
		msg["data"] = data
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		s.t.Errorf("marshal broadcast: %v", err)
		return
	}
	s.BroadcastRaw(raw)
}

// BroadcastRaw sends raw bytes to every live socket.
func (s *Server) BroadcastRaw(raw []byte) {
	s.mu.Lock()
	peers := append([]*peer(nil), s.conns...)
	s.mu.Unlock()

	for _, p := range peers {
		_ = p.write(raw)
	}
}

// DropConnections closes every live socket without a close handshake.
func (s *Server) DropConnections() {
	s.mu.Lock()
	peers := s.conns
	s.conns = nil
	s.mu.Unlock()

	for _, p := range peers {
		_ = p.conn.Close()
	}
}

// record appends every routed request to the log.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Form:   r.PostForm,
			Header: r.Header.Clone(),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// authenticate mirrors the server's session middleware.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		required := s.requireAuth
		s.mu.Unlock()

		if !required || r.URL.Path == "/login" {
			next.ServeHTTP(w, r)
			return
		}

		ck, err := r.Cookie("session")
		s.mu.Lock()
		ok := err == nil && s.sessions[ck.Value]
		s.mu.Unlock()
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", "/login")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})
}

func (s *Server) override(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		code, hasCode := s.status[key]
		loc, hasRedirect := s.hxRedirect[key]
		s.mu.Unlock()

		if hasRedirect {
			w.Header().Set("HX-Redirect", loc)
			w.WriteHeader(http.StatusOK)
			return
		}
		if hasCode {
			http.Error(w, http.StatusText(code), code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	page := s.page
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, page)
}

func (s *Server) handleSectionsList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	html := s.sectionsList
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()
	writeJSON(w, stats)
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	prefs := s.prefs
	s.mu.Unlock()
	writeJSON(w, prefs)
}

func (s *Server) handleToggleMobileHelper(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.prefs.MobileHelper == model.MobileHelperProgress {
		s.prefs.MobileHelper = model.MobileHelperButton
	} else {
		s.prefs.MobileHelper = model.MobileHelperProgress
	}
	prefs := s.prefs
	s.mu.Unlock()

	s.Broadcast("preferences_updated", prefs)
	writeJSON(w, prefs)
}

func (s *Server) handleOK(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ok := r.PostFormValue("password") == s.password
	s.mu.Unlock()

	if !ok {
		http.Redirect(w, r, "/login?error=1", http.StatusFound)
		return
	}

	id := fmt.Sprintf("sess-%d", time.Now().UnixNano())
	s.mu.Lock()
	s.sessions[id] = true
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "session", Value: id, Path: "/", HttpOnly: true})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if ck, err := r.Cookie("session"); err == nil {
		s.mu.Lock()
		delete(s.sessions, ck.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject := s.rejectWS
	s.mu.Unlock()
	if reject {
		http.Error(w, "websocket disabled", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.t.Logf("upgrade error: %v", err)
		return
	}

	p := &peer{conn: conn}
	s.mu.Lock()
	s.conns = append(s.conns, p)
	s.wsConnects++
	s.mu.Unlock()
	select {
	case s.connectSignal <- struct{}{}:
	default:
	}

	defer s.forget(p)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		select {
		case s.received <- data:
		default:
		}

		var msg struct {
			Type string `json:"type"`
		}
		s.mu.Lock()
		answer := s.answerPing
		s.mu.Unlock()
		if json.Unmarshal(data, &msg) == nil && msg.Type == "ping" && answer {
			_ = p.write([]byte(`{"type":"pong"}`))
		}
	}
}

func (s *Server) forget(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.conns {
		if c == p {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			break
		}
	}
	_ = p.conn.Close()
}

// WebSocketURL returns the ws:// URL of the /ws route.
func (s *Server) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
