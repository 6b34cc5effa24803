// Package testutil provides an in-memory settings API for deterministic tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
)

// SessionToken is the cookie value the stub hands out on login.
const SessionToken = "stub-session-token"

// State seeds the stub.
type State struct {
	// Users maps usernames to passwords.
	Users    map[string]string
	Domains  []string
	Contents []Content
	Request  []string
	Response []string
	// Files lists the plugin names that exist as files server side.
	Files []string
}

// Content mirrors the API's content policy object.
type Content struct {
	DomainName string   `json:"domain_name"`
	Content    []string `json:"content"`
}

// Recorded is one request seen by the stub.
type Recorded struct {
	Method string
	Path   string
	Body   string
}

// SettingsStub serves the settings API endpoints from memory.
type SettingsStub struct {
	URL    string
	server *httptest.Server

	mu       sync.Mutex
	state    State
	requests []Recorded
	faults   map[string]int
}

// StartSettingsStub starts a stub seeded with state and stops it on cleanup.
func StartSettingsStub(t *testing.T, state State) *SettingsStub {
	t.Helper()

	if state.Users == nil {
		state.Users = map[string]string{}
	}
	stub := &SettingsStub{
		state:  state,
		faults: map[string]int{},
	}
	stub.server = httptest.NewServer(http.HandlerFunc(stub.serve))
	stub.URL = stub.server.URL

	t.Cleanup(stub.Close)
	return stub
}

// Close shuts the stub down.
func (s *SettingsStub) Close() {
	if s.server != nil {
		s.server.Close()
	}
}

// Fail makes method+path answer with code. Code 0 drops the connection
// without an answer, which clients see as a transport error.
func (s *SettingsStub) Fail(method, path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+path] = code
}

// Requests returns a copy of every recorded request.
func (s *SettingsStub) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Count returns how many times method+path was requested.
func (s *SettingsStub) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the current state.
func (s *SettingsStub) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	contents := make([]Content, len(s.state.Contents))
	for i, c := range s.state.Contents {
		contents[i] = Content{DomainName: c.DomainName, Content: slices.Clone(c.Content)}
	}
	users := make(map[string]string, len(s.state.Users))
	for k, v := range s.state.Users {
		users[k] = v
	}
	return State{
		Users:    users,
		Domains:  slices.Clone(s.state.Domains),
		Contents: contents,
		Request:  slices.Clone(s.state.Request),
		Response: slices.Clone(s.state.Response),
		Files:    slices.Clone(s.state.Files),
	}
}

func (s *SettingsStub) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Recorded{Method: r.Method, Path: r.URL.Path, Body: string(body)})

	if code, ok := s.faults[r.Method+" "+r.URL.Path]; ok {
		if code == 0 {
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					_ = conn.Close()
					return
				}
			}
			code = http.StatusBadGateway
		}
		http.Error(w, "injected failure", code)
		return
	}

	switch r.URL.Path {
	case "/api/auth/check":
		s.authCheck(w, r)
	case "/api/auth/any":
		if len(s.state.Users) > 0 {
			writeJSON(w, http.StatusOK, map[string]bool{"user_exist": true})
			return
		}
		writeJSON(w, http.StatusForbidden, map[string]bool{"user_exist": false})
	case "/api/auth/login":
		s.login(w, body)
	case "/api/auth/register":
		s.register(w, body)
	case "/api/approved-domains":
		s.domains(w, r, body)
	case "/api/contents":
		s.contents(w, r, body)
	case "/api/plugins":
		s.plugins(w, r, body)
	default:
		http.NotFound(w, r)
	}
}

func (s *SettingsStub) authCheck(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("session")
	if err == nil && cookie.Value == SessionToken {
		writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": true, "message": "user is authenticated"})
		return
	}
	writeJSON(w, http.StatusForbidden, map[string]interface{}{"authenticated": false, "message": "user is Not authenticated"})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *SettingsStub) login(w http.ResponseWriter, body []byte) {
	var creds credentials
	if err := json.Unmarshal(body, &creds); err != nil {
		http.Error(w, "invalid format", http.StatusBadRequest)
		return
	}
	if pw, ok := s.state.Users[creds.Username]; !ok || pw != creds.Password {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Invalid cridentials"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "session", Value: SessionToken, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"message": "You are logged in."})
}

func (s *SettingsStub) register(w http.ResponseWriter, body []byte) {
	var creds credentials
	if err := json.Unmarshal(body, &creds); err != nil || creds.Username == "" {
		http.Error(w, "invalid format", http.StatusBadRequest)
		return
	}
	if _, ok := s.state.Users[creds.Username]; ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Try another password"})
		return
	}
	s.state.Users[creds.Username] = creds.Password
	writeJSON(w, http.StatusOK, map[string]string{"message": "You have registerd."})
}

func (s *SettingsStub) domains(w http.ResponseWriter, r *http.Request, body []byte) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, nonNil(s.state.Domains))
	case http.MethodPost:
		var req struct {
			Domain *string `json:"domain"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.Domain == nil {
			http.Error(w, "Bad Request: Missing domain", http.StatusBadRequest)
			return
		}
		if slices.Contains(s.state.Domains, *req.Domain) {
			http.Error(w, "Domain already exists", http.StatusBadRequest)
			return
		}
		s.state.Domains = append(s.state.Domains, *req.Domain)
		writeText(w, http.StatusOK, "Domain added successfully")
	case http.MethodDelete:
		var req struct {
			Domain string `json:"domain"`
		}
		_ = json.Unmarshal(body, &req)
		s.state.Domains = slices.DeleteFunc(s.state.Domains, func(d string) bool { return d == req.Domain })
		writeJSON(w, http.StatusOK, nonNil(s.state.Domains))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *SettingsStub) contents(w http.ResponseWriter, r *http.Request, body []byte) {
	var req struct {
		DomainName string `json:"domain_name"`
		Content    string `json:"content"`
	}
	switch r.Method {
	case http.MethodGet:
		out := s.state.Contents
		if out == nil {
			out = []Content{}
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "Something went wrong", http.StatusBadRequest)
			return
		}
		req.DomainName = strings.TrimSpace(req.DomainName)
		req.Content = strings.TrimSpace(req.Content)
		if req.DomainName == "" || req.Content == "" {
			http.Error(w, "Domain name cannot be empty", http.StatusBadRequest)
			return
		}
		for i := range s.state.Contents {
			if s.state.Contents[i].DomainName == req.DomainName {
				if !slices.Contains(s.state.Contents[i].Content, req.Content) {
					s.state.Contents[i].Content = append(s.state.Contents[i].Content, req.Content)
				}
				writeText(w, http.StatusOK, "Content added successfully")
				return
			}
		}
		s.state.Contents = append(s.state.Contents, Content{DomainName: req.DomainName, Content: []string{req.Content}})
		writeText(w, http.StatusOK, "Content added successfully")
	case http.MethodDelete:
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "Invalid format", http.StatusBadRequest)
			return
		}
		for i := range s.state.Contents {
			if s.state.Contents[i].DomainName != req.DomainName {
				continue
			}
			s.state.Contents[i].Content = slices.DeleteFunc(s.state.Contents[i].Content, func(c string) bool { return c == req.Content })
			if len(s.state.Contents[i].Content) == 0 {
				s.state.Contents = slices.Delete(s.state.Contents, i, i+1)
			}
			writeText(w, http.StatusOK, "Content deleted successfully")
			return
		}
		http.Error(w, "Content not found", http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *SettingsStub) plugins(w http.ResponseWriter, r *http.Request, body []byte) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, []map[string][]string{
			{"request_plugins_list": nonNil(s.state.Request)},
			{"response_plugins_list": nonNil(s.state.Response)},
		})
	case http.MethodPost:
		name, ok := uploadedPluginName(r, body)
		if !ok {
			http.Error(w, "Invalid file", http.StatusBadRequest)
			return
		}
		s.state.Files = append(s.state.Files, name)
		s.state.Request = append(s.state.Request, name)
		s.state.Response = append(s.state.Response, name)
		writeText(w, http.StatusOK, "File uploaded successfully.")
	case http.MethodPut:
		var req struct {
			Request  []string `json:"request_plugins_list"`
			Response []string `json:"response_plugins_list"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "Invalid format", http.StatusBadRequest)
			return
		}
		s.state.Request = req.Request
		s.state.Response = req.Response
		writeText(w, http.StatusOK, "Plugins list updated successfully")
	case http.MethodDelete:
		var req struct {
			PluginName string `json:"plugin_name"`
		}
		if err := json.Unmarshal(body, &req); err != nil || !slices.Contains(s.state.Files, req.PluginName) {
			http.Error(w, "Plugin file does not exist", http.StatusBadRequest)
			return
		}
		drop := func(p string) bool { return p == req.PluginName }
		s.state.Files = slices.DeleteFunc(s.state.Files, drop)
		s.state.Request = slices.DeleteFunc(s.state.Request, drop)
		s.state.Response = slices.DeleteFunc(s.state.Response, drop)
		writeText(w, http.StatusOK, "Plugin '"+req.PluginName+"' removed successfully.")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// uploadedPluginName turns "my_plugin.py" into "My Plugin" the way the
// plugin host names uploaded files.
func uploadedPluginName(r *http.Request, body []byte) (string, bool) {
	r.Body = io.NopCloser(strings.NewReader(string(body)))
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", false
	}
	defer file.Close()
	if header.Header.Get("Content-Type") != "text/x-python" || !strings.HasSuffix(header.Filename, ".py") {
		return "", false
	}
	base := strings.TrimSuffix(filepath.Base(header.Filename), ".py")
	words := strings.Split(base, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " "), true
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, code int, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, text)
}
