package providers

import (
	"context"
	"net/url"

	"github.com/cartermitchell13/flow-seo/core"
)

// Predefined test authorization codes.
const (
	ValidCode1 = "mock_auth_code_1"
	ValidCode2 = "mock_auth_code_2"
)

// Predefined test access and id tokens.
const (
	AccessToken1 = "mock_access_token_1"
	AccessToken2 = "mock_access_token_2"
	IDToken1     = "mock_id_token_1"
	IDToken2     = "mock_id_token_2"
)

// Predefined test identities and sites.
var (
	User1 = &core.Identity{
		UserID:    "mock_user_1",
		Email:     "user1@mock.test",
		FirstName: "Mock",
		LastName:  "One",
	}

	User2 = &core.Identity{
		UserID:    "mock_user_2",
		Email:     "user2@mock.test",
		FirstName: "Mock",
		LastName:  "Two",
	}

	Sites1 = []core.Site{
		{ID: "mock_site_1", Name: "Site One"},
		{ID: "mock_site_2", Name: "Site Two"},
	}

	Sites2 = []core.Site{
		{ID: "mock_site_3", Name: "Site Three"},
	}
)

// MockProvider is a canned in-memory implementation of core.IdentityProvider.
type MockProvider struct {
	codeToToken   map[string]string
	tokenToUser   map[string]*core.Identity
	tokenToSites  map[string][]core.Site
	idTokenToUser map[string]*core.Identity

	// track method calls for verification
	ExchangeCodeCalls  int
	AuthorizedByCalls  int
	SitesCalls         int
	VerifyIDTokenCalls int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		codeToToken: map[string]string{
			ValidCode1: AccessToken1,
			ValidCode2: AccessToken2,
		},

		tokenToUser: map[string]*core.Identity{
			AccessToken1: User1,
			AccessToken2: User2,
		},

		tokenToSites: map[string][]core.Site{
			AccessToken1: Sites1,
			AccessToken2: Sites2,
		},

		idTokenToUser: map[string]*core.Identity{
			IDToken1: User1,
			IDToken2: User2,
		},
	}
}

// RemapCode rebinds an authorization code to a new access token, identity,
// and site list, simulating re-authorization with a rotated token.
func (m *MockProvider) RemapCode(code, accessToken string, user *core.Identity, sites []core.Site) {
	m.codeToToken[code] = accessToken
	m.tokenToUser[accessToken] = user
	m.tokenToSites[accessToken] = sites
}

func (m *MockProvider) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", "mock_client")
	q.Set("response_type", "code")
	q.Set("state", state)
	return "https://mock.test/oauth/authorize?" + q.Encode()
}

func (m *MockProvider) ExchangeCode(ctx context.Context, code string) (*core.OAuthToken, error) {
	m.ExchangeCodeCalls++

	token, ok := m.codeToToken[code]
	if !ok {
		return nil, core.ErrTokenExchange
	}

	return &core.OAuthToken{AccessToken: token, TokenType: "Bearer"}, nil
}

func (m *MockProvider) AuthorizedBy(ctx context.Context, accessToken string) (*core.Identity, error) {
	m.AuthorizedByCalls++

	user, ok := m.tokenToUser[accessToken]
	if !ok {
		return nil, core.ErrProviderProfile
	}

	return user, nil
}

func (m *MockProvider) Sites(ctx context.Context, accessToken string) ([]core.Site, error) {
	m.SitesCalls++

	sites, ok := m.tokenToSites[accessToken]
	if !ok {
		return nil, core.ErrProviderSites
	}

	return sites, nil
}

func (m *MockProvider) VerifyIDToken(ctx context.Context, accessToken, idToken string) (*core.Identity, error) {
	m.VerifyIDTokenCalls++

	if _, ok := m.tokenToUser[accessToken]; !ok {
		return nil, core.ErrIDTokenVerification
	}

	user, ok := m.idTokenToUser[idToken]
	if !ok {
		return nil, core.ErrIDTokenVerification
	}

	return user, nil
}
