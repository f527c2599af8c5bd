// Package fastlytest runs an in-process stand-in for the Fastly API that
// records every request it receives.
package fastlytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Raw is written to the response body verbatim.
type Raw string

// Server serves bills, stats and services from in-memory fixtures. Requests
// without the expected Fastly-Key get 401. Missing fixtures get 404.
type Server struct {
	*httptest.Server
	Token string

	mu       sync.Mutex
	bills    map[string]any
	stats    any
	services map[string]any
	requests []string
}

// New starts a server and stops it when the test ends.
func New(t testing.TB, token string) *Server {
	t.Helper()
	s := &Server{
		Token:    token,
		bills:    map[string]any{},
		services: map[string]any{},
	}
	r := chi.NewRouter()
	r.Use(s.record, s.authorize)
	r.Get("/billing/v2/year/{year}/month/{month}", s.handleBill)
	r.Get("/stats", s.handleStats)
	r.Get("/service/{id}", s.handleService)
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func billKey(year, month string) string { return year + "-" + month }

// SetBill installs the response for GET billing/v2/year/{year}/month/{month}.
func (s *Server) SetBill(year, month int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[billKey(fmt.Sprint(year), fmt.Sprint(month))] = body
}

// SetStats installs the response for GET stats.
func (s *Server) SetStats(body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = body
}

// SetService installs the response for GET service/{id}.
func (s *Server) SetService(id string, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[id] = body
}

// Requests returns the request URIs received so far, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Count returns how many received request URIs start with prefix.
func (s *Server) Count(prefix string) int {
	n := 0
	for _, uri := range s.Requests() {
		if strings.HasPrefix(uri, prefix) {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.RequestURI())
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Fastly-Key") != s.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Provided credentials are missing or invalid"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleBill(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body, ok := s.bills[billKey(chi.URLParam(r, "year"), chi.URLParam(r, "month"))]
	s.mu.Unlock()
	respond(w, body, ok)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := s.stats
	s.mu.Unlock()
	respond(w, body, body != nil)
}

func (s *Server) handleService(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body, ok := s.services[chi.URLParam(r, "id")]
	s.mu.Unlock()
	respond(w, body, ok)
}

func respond(w http.ResponseWriter, body any, ok bool) {
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "Record not found"})
		return
	}
	if raw, isRaw := body.(Raw); isRaw {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, string(raw))
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
