package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// callbackPage notifies the opening window that the popup flow finished.
const callbackPage = `<!DOCTYPE html>
<html>
<head><title>Authorization Complete</title></head>
<body>
<script>
  if (window.opener) {
    window.opener.postMessage("authComplete", "*");
    window.close();
  }
</script>
<p>Authorization complete. You can close this window.</p>
</body>
</html>`

type Server struct {
	flow     *OAuthFlow
	sessions *SessionManager
	keys     *KeyService
	log      *zap.Logger
}

func NewServer(flow *OAuthFlow, sessions *SessionManager, keys *KeyService, log *zap.Logger) *Server {
	return &Server{
		flow:     flow,
		sessions: sessions,
		keys:     keys,
		log:      log,
	}
}

// Routes wires the HTTP surface of the subsystem.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/authorize", s.HandleAuthorize)
	r.Get("/callback", s.HandleCallback)
	r.Post("/session/token", s.HandleSessionToken)

	r.Post("/keys", s.HandleSaveKey)
	r.Get("/keys", s.HandleGetKey)
	r.Delete("/keys", s.HandleDeleteKey)
	r.Get("/providers/selected", s.HandleSelectedProvider)

	r.Get("/health", s.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.flow.AuthorizationURL(), http.StatusFound)
}

func (s *Server) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" || state == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "code and state are required")
		return
	}

	if err := s.flow.Callback(r.Context(), code, state); err != nil {
		if errors.Is(err, ErrInvalidState) {
			respondError(w, http.StatusBadRequest, "invalid_state", "OAuth state mismatch")
			return
		}
		// Authorization codes are single use, so this is never retried
		// silently; the user restarts the flow.
		s.log.Error("oauth callback failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "authorization_failed", "Authorization failed, please retry")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, callbackPage)
}

func (s *Server) HandleSessionToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"idToken"`
		SiteID  string `json:"siteId"`
	}

	if !decodeJSON(w, r, &req) {
		return
	}

	if req.IDToken == "" || req.SiteID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "idToken and siteId are required")
		return
	}

	token, expiresAt, err := s.sessions.ExchangeIDToken(r.Context(), req.SiteID, req.IDToken)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			respondError(w, http.StatusUnauthorized, "unauthorized", "Identity verification failed")
			return
		}
		s.log.Error("session token exchange failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to issue session token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessionToken": token,
		"exp":          expiresAt.Unix(),
	})
}

func (s *Server) HandleSaveKey(w http.ResponseWriter, r *http.Request) {
	identity, siteID, ok := s.authorize(w, r)
	if !ok {
		return
	}

	var req struct {
		Provider string `json:"provider"`
		APIKey   string `json:"apiKey"`
	}

	if !decodeJSON(w, r, &req) {
		return
	}

	if req.APIKey == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "apiKey is required")
		return
	}

	err := s.keys.SaveKey(r.Context(), identity.UserID, siteID, AIProvider(req.Provider), req.APIKey)
	if err != nil {
		if errors.Is(err, ErrUnsupportedProvider) {
			respondError(w, http.StatusBadRequest, "invalid_provider", "Unsupported provider")
			return
		}
		// The submitted key is never echoed or logged.
		s.log.Error("failed to save api key", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to save key")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) HandleGetKey(w http.ResponseWriter, r *http.Request) {
	identity, siteID, ok := s.authorize(w, r)
	if !ok {
		return
	}

	provider := AIProvider(r.URL.Query().Get("provider"))
	if !provider.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_provider", "Unsupported provider")
		return
	}

	key, err := s.keys.Key(r.Context(), identity.UserID, siteID, provider)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "No key stored for this provider")
			return
		}
		s.log.Error("failed to load api key", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to load key")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"apiKey": key})
}

func (s *Server) HandleDeleteKey(w http.ResponseWriter, r *http.Request) {
	identity, siteID, ok := s.authorize(w, r)
	if !ok {
		return
	}

	var req struct {
		Provider string `json:"provider"`
	}

	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.keys.DeleteKey(r.Context(), identity.UserID, siteID, AIProvider(req.Provider))
	if err != nil {
		if errors.Is(err, ErrUnsupportedProvider) {
			respondError(w, http.StatusBadRequest, "invalid_provider", "Unsupported provider")
			return
		}
		s.log.Error("failed to delete api key", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to delete key")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) HandleSelectedProvider(w http.ResponseWriter, r *http.Request) {
	identity, siteID, ok := s.authorize(w, r)
	if !ok {
		return
	}

	provider, err := s.keys.SelectedProvider(r.Context(), identity.UserID, siteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "No provider configured")
			return
		}
		s.log.Error("failed to load selected provider", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to load selected provider")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"provider": string(provider)})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

// authorize resolves the session identity and site scope of a key request.
// On failure it writes the response and returns ok=false.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (*Identity, string, bool) {
	token, err := extractBearerToken(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid session token")
		return nil, "", false
	}

	identity, valid := s.sessions.Verify(token)
	if !valid {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid session token")
		return nil, "", false
	}

	siteID := r.Header.Get("X-Site-Id")
	if siteID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "X-Site-Id header is required")
		return nil, "", false
	}

	return identity, siteID, true
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization header format")
	}

	return parts[1], nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	respondJSON(w, statusCode, map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
