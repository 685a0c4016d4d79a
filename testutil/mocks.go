package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockOsuServer is a test server standing in for the osu! API and its token endpoint.
// Handlers are keyed by exact request path.
type MockOsuServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu   sync.Mutex
	hits map[string]int
}

// NewMockOsuServer creates a new mock osu! API server.
func NewMockOsuServer(t *testing.T) *MockOsuServer {
	t.Helper()
	m := &MockOsuServer{
		Handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		m.mu.Lock()
		m.hits[key]++
		m.mu.Unlock()
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Hits returns how many requests reached path.
func (m *MockOsuServer) Hits(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[path]
}

// TotalHits returns the number of requests across all paths.
func (m *MockOsuServer) TotalHits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.hits {
		n += v
	}
	return n
}

// TokenURL is the mock token endpoint.
func (m *MockOsuServer) TokenURL() string { return m.URL + "/oauth/token" }

// APIURL is the mock API root.
func (m *MockOsuServer) APIURL() string { return m.URL + "/api/v2" }

// MockOAuthTokenResponse adds a handler for the client-credentials token endpoint.
func (m *MockOsuServer) MockOAuthTokenResponse(accessToken string, expiresIn int) {
	m.Handlers["/oauth/token"] = func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"access_token": accessToken,
			"expires_in":   expiresIn,
			"token_type":   "Bearer",
		})
	}
}

// MockJSON serves body as JSON with status on the given API path (relative to /api/v2).
func (m *MockOsuServer) MockJSON(path string, status int, body any) {
	m.Handlers["/api/v2"+path] = func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	}
}

// MockUserResponse serves a minimal user payload for identifier.
func (m *MockOsuServer) MockUserResponse(identifier string, id int64, username string) {
	m.MockJSON("/users/"+identifier, http.StatusOK, map[string]any{
		"id":           id,
		"username":     username,
		"country_code": "US",
		"avatar_url":   "https://a.ppy.sh/" + username,
		"statistics": map[string]any{
			"global_rank":  1234,
			"country_rank": 56,
			"pp":           7890.5,
			"hit_accuracy": 98.765,
			"play_count":   42000,
			"grade_counts": map[string]int{"ss": 1, "ssh": 2, "s": 3, "sh": 4, "a": 5},
		},
	})
}

// WriteJSON encodes body as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // test mock response
}
