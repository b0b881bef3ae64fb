package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

type mockUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type mockSite struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

var (
	mockEditor = mockUser{
		ID:        "wf_user_1",
		Email:     "editor@example.com",
		FirstName: "Site",
		LastName:  "Editor",
	}

	mockSites = []mockSite{
		{ID: "wf_site_1", DisplayName: "Marketing Site"},
		{ID: "wf_site_2", DisplayName: "Docs Site"},
	}
)

const (
	validAuthCode   = "wf_auth_code_1"
	mockAccessToken = "wf_access_token_1"
	validIDToken    = "wf_id_token_1"
)

// MockWebflowServer imitates the Webflow endpoints the subsystem talks to:
// code exchange, authorized_by, site listing, and id token resolution.
type MockWebflowServer struct {
	server *httptest.Server

	mu            sync.Mutex
	consumedCodes map[string]bool

	tokenRequests   int
	resolveRequests int
}

func NewMockWebflowServer() *MockWebflowServer {
	m := &MockWebflowServer{
		consumedCodes: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", m.handleToken)
	mux.HandleFunc("/v2/token/authorized_by", m.handleAuthorizedBy)
	mux.HandleFunc("/v2/sites", m.handleSites)
	mux.HandleFunc("/beta/token/resolve", m.handleResolve)

	m.server = httptest.NewServer(mux)
	return m
}

func (m *MockWebflowServer) URL() string {
	return m.server.URL
}

func (m *MockWebflowServer) Close() {
	m.server.Close()
}

// TokenRequestCount reports how many code-exchange calls the server has seen.
func (m *MockWebflowServer) TokenRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenRequests
}

// ResolveRequestCount reports how many id-token resolutions were attempted.
func (m *MockWebflowServer) ResolveRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveRequests
}

// ResetCodes makes consumed authorization codes valid again, simulating the
// provider minting a fresh code for a re-authorization.
func (m *MockWebflowServer) ResetCodes() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumedCodes = make(map[string]bool)
}

func (m *MockWebflowServer) handleToken(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenRequests++

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	code := r.PostFormValue("code")
	grantType := r.PostFormValue("grant_type")

	// Authorization codes are single use, exactly like the real endpoint.
	if grantType != "authorization_code" || code != validAuthCode || m.consumedCodes[code] {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}
	m.consumedCodes[code] = true

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"access_token": mockAccessToken,
		"token_type":   "Bearer",
	})
}

func (m *MockWebflowServer) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+mockAccessToken
}

func (m *MockWebflowServer) handleAuthorizedBy(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mockEditor)
}

func (m *MockWebflowServer) handleSites(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"sites": mockSites})
}

func (m *MockWebflowServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.resolveRequests++
	m.mu.Unlock()

	if !m.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken != validIDToken {
		http.Error(w, "invalid id token", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mockEditor)
}
