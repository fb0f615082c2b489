// Package backendtest runs an in-process stand-in for the relay backend:
// the REST endpoints and the /ws push channel, with hooks to script failures,
// stall requests and push frames.
package backendtest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/relay-dashboard/internal/telemetry"
	"github.com/DoyleJ11/relay-dashboard/internal/types"
)

const BasePath = "/socket"

type Request struct {
	Method string
	Path   string
	Body   []byte
}

type failure struct {
	code int
	body string
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	status   telemetry.StatusReport
	failures map[string]failure
	holds    map[string]chan struct{}
	requests []Request
	conns    map[*websocket.Conn]struct{}

	frames chan []byte
	joined chan struct{}
}

func New() *Server {
	s := &Server{
		failures: map[string]failure{},
		holds:    map[string]chan struct{}{},
		conns:    map[*websocket.Conn]struct{}{},
		frames:   make(chan []byte, 64),
		joined:   make(chan struct{}, 16),
	}

	r := chi.NewRouter()
	r.Route(BasePath, func(r chi.Router) {
		r.Post("/set_wss_url", s.handle("set_wss_url", s.configure))
		r.Post("/disconnect_all", s.handle("disconnect_all", s.disconnect))
		r.Post("/reset_max_values", s.handle("reset_max_values", nil))
		r.Post("/reset_max_values_tag", s.handle("reset_max_values_tag", nil))
		r.Get("/status", s.handle("status", s.writeStatus))
		r.Get("/ws", s.live)
	})
	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the scheme://host the dashboard should be pointed at.
func (s *Server) BaseURL() string { return s.Server.URL }

func (s *Server) SetStatus(r telemetry.StatusReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = r
}

// Fail makes the named endpoint answer with code and body until cleared
// with code 0.
func (s *Server) Fail(name string, code int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.failures, name)
		return
	}
	s.failures[name] = failure{code: code, body: body}
}

// Hold stalls the next requests to name until release is called.
func (s *Server) Hold(name string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[name] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.holds[name] == ch {
				delete(s.holds, name)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo filters recorded requests by endpoint name.
func (s *Server) RequestsTo(name string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == BasePath+"/"+name {
			out = append(out, r)
		}
	}
	return out
}

// Frames yields text frames sent by dashboards over /ws.
func (s *Server) Frames() <-chan []byte { return s.frames }

// Joined fires once per accepted /ws connection.
func (s *Server) Joined() <-chan struct{} { return s.joined }

func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Push sends one frame to every connected dashboard.
func (s *Server) Push(ctx context.Context, frame []byte) error {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if err := c.Write(ctx, websocket.MessageText, frame); err != nil {
			return err
		}
	}
	return nil
}

// PushJSON marshals v and pushes it.
func (s *Server) PushJSON(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Push(ctx, b)
}

// DropClients closes every /ws connection with the given status.
func (s *Server) DropClients(code websocket.StatusCode) {
	s.mu.Lock()
	conns := s.conns
	s.conns = map[*websocket.Conn]struct{}{}
	s.mu.Unlock()
	for c := range conns {
		_ = c.Close(code, "dropped")
	}
}

func (s *Server) Close() {
	s.DropClients(websocket.StatusGoingAway)
	s.Server.Close()
}

func (s *Server) handle(name string, ok http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
		hold := s.holds[name]
		fail, failing := s.failures[name]
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			http.Error(w, fail.body, fail.code)
			return
		}
		if ok != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			ok(w, r)
			return
		}
		writeJSON(w, map[string]string{"status": "success"})
	}
}

func (s *Server) configure(w http.ResponseWriter, r *http.Request) {
	var req types.ConfigureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusUnprocessableEntity)
		return
	}
	s.mu.Lock()
	s.status = telemetry.StatusReport{}
	if req.URL != "" {
		s.status.Team1 = &telemetry.SlotReport{Connected: true, URL: req.URL}
	}
	if req.URL2 != "" {
		s.status.Team2 = &telemetry.SlotReport{Connected: true, URL: req.URL2}
	}
	s.mu.Unlock()
	writeJSON(w, map[string]string{"status": "success"})
}

func (s *Server) disconnect(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.status = telemetry.StatusReport{}
	s.mu.Unlock()
	writeJSON(w, map[string]string{"status": "success"})
}

func (s *Server) writeStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()
	writeJSON(w, status)
}

func (s *Server) live(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	select {
	case s.joined <- struct{}{}:
	default:
	}

	for {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		_, data, err := conn.Read(ctx)
		cancel()
		if err != nil {
			return
		}
		select {
		case s.frames <- data:
		default:
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
