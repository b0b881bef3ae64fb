package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cartermitchell13/flow-seo/core"
)

// Scopes requested on every authorization. Fixed and application
// controlled; never derived from request input.
var webflowScopes = []string{
	"sites:read",
	"assets:read",
	"assets:write",
	"authorized_user:read",
}

type WebflowConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`

	// Overridable for tests; defaults point at webflow.com.
	AuthBaseURL string `yaml:"auth_base_url"`
	APIBaseURL  string `yaml:"api_base_url"`
}

type WebflowProvider struct {
	config     *WebflowConfig
	httpClient *http.Client
}

func NewWebflowProvider(config *WebflowConfig) *WebflowProvider {
	if config.AuthBaseURL == "" {
		config.AuthBaseURL = "https://webflow.com"
	}
	if config.APIBaseURL == "" {
		config.APIBaseURL = "https://api.webflow.com"
	}
	return &WebflowProvider{
		config:     config,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type webflowTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type webflowUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type webflowSitesResponse struct {
	Sites []struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	} `json:"sites"`
}

func (w *WebflowProvider) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", w.config.ClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", w.config.RedirectURI)
	q.Set("scope", strings.Join(webflowScopes, " "))
	q.Set("state", state)

	return w.config.AuthBaseURL + "/oauth/authorize?" + q.Encode()
}

func (w *WebflowProvider) ExchangeCode(ctx context.Context, code string) (*core.OAuthToken, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", w.config.ClientID)
	data.Set("client_secret", w.config.ClientSecret)
	data.Set("redirect_uri", w.config.RedirectURI)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		w.config.APIBaseURL+"/oauth/access_token",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTokenExchange, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", core.ErrTokenExchange, resp.StatusCode, string(body))
	}

	var tokenResp webflowTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTokenExchange, err)
	}

	if tokenResp.AccessToken == "" {
		return nil, core.ErrInvalidTokenResponse
	}

	return &core.OAuthToken{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
	}, nil
}

func (w *WebflowProvider) AuthorizedBy(ctx context.Context, accessToken string) (*core.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.config.APIBaseURL+"/v2/token/authorized_by", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderProfile, err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderProfile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", core.ErrProviderProfile, resp.StatusCode)
	}

	var user webflowUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderProfile, err)
	}

	return &core.Identity{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

func (w *WebflowProvider) Sites(ctx context.Context, accessToken string) ([]core.Site, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.config.APIBaseURL+"/v2/sites", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderSites, err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderSites, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", core.ErrProviderSites, resp.StatusCode)
	}

	var sitesResp webflowSitesResponse
	if err := json.NewDecoder(resp.Body).Decode(&sitesResp); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderSites, err)
	}

	sites := make([]core.Site, 0, len(sitesResp.Sites))
	for _, s := range sitesResp.Sites {
		sites = append(sites, core.Site{ID: s.ID, Name: s.DisplayName})
	}

	return sites, nil
}

func (w *WebflowProvider) VerifyIDToken(ctx context.Context, accessToken, idToken string) (*core.Identity, error) {
	payload, err := json.Marshal(map[string]string{"idToken": idToken})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIDTokenVerification, err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		w.config.APIBaseURL+"/beta/token/resolve",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIDTokenVerification, err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIDTokenVerification, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", core.ErrIDTokenVerification, resp.StatusCode)
	}

	var user webflowUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIDTokenVerification, err)
	}

	if user.ID == "" {
		return nil, fmt.Errorf("%w: empty user id", core.ErrIDTokenVerification)
	}

	return &core.Identity{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}
