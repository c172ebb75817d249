// Package saucetest runs an in-memory stand-in for the provider's REST v1
// user endpoints.
package saucetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type SubAccount struct {
	Username      string
	ChildrenCount int
}

type Day struct {
	Date    string
	Jobs    int64
	Seconds float64
}

// Request is one call the server received.
type Request struct {
	Path          string
	Query         string
	Authorization string
	At            time.Time
}

type failure struct {
	status int
	body   string
}

type Server struct {
	*httptest.Server

	// AuthHeader, when set, is the only Authorization value accepted.
	AuthHeader string

	mu       sync.Mutex
	subs     map[string][]SubAccount
	usage    map[string][]Day
	raw      map[string]string
	failures map[string]failure
	requests []Request
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		subs:     make(map[string][]SubAccount),
		usage:    make(map[string][]Day),
		raw:      make(map[string]string),
		failures: make(map[string]failure),
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.authorize)
	r.Get("/users/{username}/list-subaccounts", s.handleSubAccounts)
	r.Get("/users/{username}/usage", s.handleUsage)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) SetSubAccounts(parent string, subs ...SubAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[parent] = subs
}

func (s *Server) SetUsage(account string, days ...Day) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[account] = days
}

// SetRawUsage serves body verbatim for account's usage.
func (s *Server) SetRawUsage(account, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[account] = body
}

// Fail answers requests to path with status and body.
func (s *Server) Fail(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, body: body}
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Paths lists the request paths in arrival order.
func (s *Server) Paths() []string {
	reqs := s.Requests()
	paths := make([]string, len(reqs))
	for i, r := range reqs {
		paths[i] = r.Path
	}
	return paths
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			At:            time.Now(),
		})
		f, failing := s.failures[r.URL.Path]
		s.mu.Unlock()

		if failing {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AuthHeader != "" && r.Header.Get("Authorization") != s.AuthHeader {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSubAccounts(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	s.mu.Lock()
	subs := s.subs[username]
	s.mu.Unlock()

	users := make([]map[string]any, 0, len(subs))
	for _, sub := range subs {
		users = append(users, map[string]any{
			"username":       sub.Username,
			"children_count": sub.ChildrenCount,
			"email":          sub.Username + "@example.com",
			"user_type":      "subaccount",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	s.mu.Lock()
	raw, hasRaw := s.raw[username]
	days := s.usage[username]
	s.mu.Unlock()

	if hasRaw {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(raw))
		return
	}

	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	rows := make([]any, 0, len(days))
	for _, d := range days {
		if start != "" && d.Date < start {
			continue
		}
		if end != "" && d.Date > end {
			continue
		}
		rows = append(rows, []any{d.Date, []any{d.Jobs, d.Seconds}})
	}
	writeJSON(w, http.StatusOK, map[string]any{"usage": rows, "username": username})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
