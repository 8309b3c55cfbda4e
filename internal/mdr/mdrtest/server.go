// Package mdrtest provides an in-process fake of the MDR REST API for tests.
package mdrtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/mdrsync/internal/mdr"
)

// Request is a recorded write request.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Decode unmarshals the recorded body into v.
func (r Request) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Server is a fake MDR. All fields are guarded by the server's mutex; use the
// helper methods to mutate them while the server is running.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	namespaces   mdr.NamespaceListing
	members      map[string][]mdr.Member
	elements     map[string]*mdr.DataElement
	valueDomains map[string]*mdr.ValueDomain
	raw          map[string]string
	writes       []Request
	reads        []string

	// OnCreateNamespace, when set, runs after a namespace POST is recorded.
	OnCreateNamespace func(s *Server, req mdr.NamespaceRequest)
	// FailPaths maps a request path to a forced status code.
	FailPaths map[string]int
}

// NewServer starts a fake MDR. The returned server is closed via t.Cleanup
// by callers or explicitly with Close.
func NewServer() *Server {
	s := &Server{
		namespaces:   mdr.NamespaceListing{},
		members:      map[string][]mdr.Member{},
		elements:     map[string]*mdr.DataElement{},
		valueDomains: map[string]*mdr.ValueDomain{},
		raw:          map[string]string{},
		FailPaths:    map[string]int{},
	}

	r := chi.NewRouter()
	r.Use(s.recordAndFail)
	r.Get("/namespaces/", s.listNamespaces)
	r.Post("/namespaces/", s.createNamespace)
	r.Get("/namespaces/{id}/members", s.listMembers)
	r.Get("/element/{urn}", s.getElement)
	r.Get("/element/{urn}/valuedomain", s.getValueDomain)
	r.Post("/element", s.createElement)
	r.Put("/element/{urn}", s.updateElement)

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL returns the API base with a trailing slash.
func (s *Server) BaseURL() string {
	return s.URL + "/"
}

// AddNamespace registers a namespace under role.
func (s *Server) AddNamespace(role mdr.Role, id, urn, designation, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.namespaces[role] = append(s.namespaces[role], mdr.Namespace{
		Identification: mdr.Identification{
			ElementType: mdr.ElementTypeNamespace,
			Identifier:  mdr.ID(id),
			URN:         urn,
			Status:      status,
		},
		Definitions: []mdr.Definition{{Designation: designation, Language: mdr.LanguageEnglish}},
	})
}

// AddElement registers a data element, its value domain and a member entry.
func (s *Server) AddElement(namespaceID string, element *mdr.DataElement, vd *mdr.ValueDomain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	urn := element.Identification.URN
	s.elements[urn] = element
	if vd != nil {
		s.valueDomains[urn] = vd
	}
	s.members[namespaceID] = append(s.members[namespaceID], mdr.Member{ElementURN: urn, Status: element.Identification.Status})
}

// AddMember registers a bare member entry without an element behind it.
func (s *Server) AddMember(namespaceID string, m mdr.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[namespaceID] = append(s.members[namespaceID], m)
}

// ServeRaw answers GET requests for path with body verbatim, bypassing the
// registered namespaces and elements.
func (s *Server) ServeRaw(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[path] = body
}

// Writes returns the recorded POST and PUT requests in arrival order.
func (s *Server) Writes() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.writes))
	copy(out, s.writes)
	return out
}

// WritesTo returns the recorded writes with the given method and path prefix.
func (s *Server) WritesTo(method, pathPrefix string) []Request {
	var out []Request
	for _, w := range s.Writes() {
		if w.Method == method && strings.HasPrefix(w.Path, pathPrefix) {
			out = append(out, w)
		}
	}
	return out
}

// Reads returns the paths of recorded GET requests.
func (s *Server) Reads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.reads))
	copy(out, s.reads)
	return out
}

func (s *Server) recordAndFail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		if r.Method == http.MethodGet {
			s.reads = append(s.reads, r.URL.Path)
		} else {
			s.writes = append(s.writes, Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
		}
		code, fail := s.FailPaths[r.URL.Path]
		raw, hasRaw := s.raw[r.URL.Path]
		s.mu.Unlock()

		if fail {
			http.Error(w, "forced failure", code)
			return
		}
		if hasRaw && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, raw)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listNamespaces(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.namespaces)
}

func (s *Server) createNamespace(w http.ResponseWriter, r *http.Request) {
	var req mdr.NamespaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.OnCreateNamespace != nil {
		s.OnCreateNamespace(s, req)
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.members[chi.URLParam(r, "id")]
	if !ok {
		members = []mdr.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) getElement(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	element, ok := s.elements[chi.URLParam(r, "urn")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, element)
}

func (s *Server) getValueDomain(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vd, ok := s.valueDomains[chi.URLParam(r, "urn")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, vd)
}

func (s *Server) createElement(w http.ResponseWriter, r *http.Request) {
	var element mdr.DataElement
	if err := json.NewDecoder(r.Body).Decode(&element); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if element.Identification.ElementType != mdr.ElementTypeDataElement {
		http.Error(w, "unexpected element type", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) updateElement(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, ok := s.elements[chi.URLParam(r, "urn")]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	var element mdr.DataElement
	if err := json.NewDecoder(r.Body).Decode(&element); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
