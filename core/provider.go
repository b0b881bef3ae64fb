package core

import (
	"context"
	"errors"
)

var (
	ErrTokenExchange        = errors.New("provider token exchange failed")
	ErrInvalidTokenResponse = errors.New("provider token response missing access_token")
	ErrProviderProfile      = errors.New("provider profile request failed")
	ErrProviderSites        = errors.New("provider site list request failed")
	ErrIDTokenVerification  = errors.New("provider id token verification failed")
)

// OAuthToken is the result of exchanging an authorization code.
type OAuthToken struct {
	AccessToken string
	TokenType   string
}

// Site is a Webflow site the authorizing identity can access.
type Site struct {
	ID   string
	Name string
}

// IdentityProvider is the Webflow-facing surface of the subsystem. All
// calls are server-to-server; implementations apply their own request
// timeouts and never log client secrets.
type IdentityProvider interface {
	// AuthorizeURL builds the consent-screen URL carrying the CSRF state.
	AuthorizeURL(state string) string

	// ExchangeCode trades a single-use authorization code for an access
	// token. Not safe to retry blindly: the code may already be consumed.
	ExchangeCode(ctx context.Context, code string) (*OAuthToken, error)

	// AuthorizedBy returns the identity the access token was granted by.
	AuthorizedBy(ctx context.Context, accessToken string) (*Identity, error)

	// Sites lists the sites the access token is authorized for.
	Sites(ctx context.Context, accessToken string) ([]Site, error)

	// VerifyIDToken introspects a caller-supplied designer id token using
	// the site's access token and returns the verified identity.
	VerifyIDToken(ctx context.Context, accessToken, idToken string) (*Identity, error)
}
