// Package explorertest provides an in-process fake of the RouteScan lookup
// API and the BeraScan verification API for tests.
package explorertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is a fake explorer. Lookup routes live under /v2, the verification
// endpoint is /api.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	sources     map[string]json.RawMessage
	lookupCode  int
	lookupBody  string
	submitCode  int
	submitBody  string
	submissions []url.Values
	lookups     []Lookup
	validKey    string
}

// Lookup records one getsourcecode call
type Lookup struct {
	Network string
	ChainID string
	Address string
}

// New starts a fake explorer. Close it when done.
func New() *Server {
	s := &Server{
		sources:    make(map[string]json.RawMessage),
		submitBody: `{"status":"1","message":"OK","result":"test-guid"}`,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/v2/network/{network}/evm/{chainID}/etherscan/contract/getsourcecode", s.handleLookup)
	r.Post("/api", s.handleSubmit)
	r.Get("/api", s.handleStatus)

	s.Server = httptest.NewServer(r)
	return s
}

// LookupURL is the base URL to configure a lookup client with
func (s *Server) LookupURL() string {
	return s.URL
}

// VerifyURL is the verification endpoint
func (s *Server) VerifyURL() string {
	return s.URL + "/api"
}

// SetSource registers the lookup result element returned for address
func (s *Server) SetSource(address string, element any) {
	data, err := json.Marshal(element)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[address] = data
}

// SetLookupResponse forces every lookup to return code and body verbatim
func (s *Server) SetLookupResponse(code int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupCode = code
	s.lookupBody = body
}

// SetSubmitResponse sets the status code and body returned for submissions
func (s *Server) SetSubmitResponse(code int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCode = code
	s.submitBody = body
}

// SetValidKey makes GET /api reject every API key except key
func (s *Server) SetValidKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validKey = key
}

// Submissions returns the forms posted to /api
func (s *Server) Submissions() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.Values, len(s.submissions))
	copy(out, s.submissions)
	return out
}

// Lookups returns the getsourcecode calls received
func (s *Server) Lookups() []Lookup {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Lookup, len(s.lookups))
	copy(out, s.lookups)
	return out
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")

	s.mu.Lock()
	s.lookups = append(s.lookups, Lookup{
		Network: chi.URLParam(r, "network"),
		ChainID: chi.URLParam(r, "chainID"),
		Address: address,
	})
	code, body := s.lookupCode, s.lookupBody
	element, ok := s.sources[address]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if code != 0 {
		w.WriteHeader(code)
		w.Write([]byte(body))
		return
	}

	result := []json.RawMessage{}
	if ok {
		result = append(result, element)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "1",
		"message": "OK",
		"result":  result,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.submissions = append(s.submissions, r.PostForm)
	code, body := s.submitCode, s.submitBody
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if code != 0 {
		w.WriteHeader(code)
	}
	w.Write([]byte(body))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	validKey := s.validKey
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if validKey != "" && r.URL.Query().Get("apikey") != validKey {
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Invalid API Key"}`))
		return
	}
	w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Unknown UID"}`))
}
