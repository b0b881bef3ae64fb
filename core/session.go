package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the compact claim set carried by a session token.
type SessionClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies short-lived signed session tokens.
// There is no revocation list; compromise is bounded by the fixed TTL and
// callers re-exchange when a token expires.
type SessionManager struct {
	secret   []byte
	ttl      time.Duration
	store    CredentialStore
	provider IdentityProvider
}

func NewSessionManager(secret string, ttl time.Duration, store CredentialStore, provider IdentityProvider) *SessionManager {
	return &SessionManager{
		secret:   []byte(secret),
		ttl:      ttl,
		store:    store,
		provider: provider,
	}
}

// Issue signs a session token for an already-verified identity.
func (m *SessionManager) Issue(identity *Identity) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)

	claims := &SessionClaims{
		UserID:    identity.UserID,
		Email:     identity.Email,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	sessionsIssued.Inc()
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of a session token. It returns
// (nil, false) for a bad signature, a malformed token, or an expired one;
// callers cannot distinguish the three.
func (m *SessionManager) Verify(tokenString string) (*Identity, bool) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil || !token.Valid {
		sessionVerifyFailures.Inc()
		return nil, false
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		sessionVerifyFailures.Inc()
		return nil, false
	}

	return &Identity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}, true
}

// ExchangeIDToken verifies a designer-supplied id token against the
// identity provider using the site's stored access token and issues a
// session token for the verified identity. A site with no stored access
// token has not completed authorization yet; that is ErrUnauthorized, not
// a retryable condition.
func (m *SessionManager) ExchangeIDToken(ctx context.Context, siteID, idToken string) (string, time.Time, error) {
	accessToken, err := m.store.AccessTokenBySite(ctx, siteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", time.Time{}, ErrUnauthorized
		}
		return "", time.Time{}, fmt.Errorf("failed to resolve site access token: %w", err)
	}

	identity, err := m.provider.VerifyIDToken(ctx, accessToken, idToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	return m.Issue(identity)
}
