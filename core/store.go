package core

import (
	"context"
	"errors"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// CredentialStore is the persistent mapping from site/user/provider
// identities to tokens and encrypted keys. The contract is identical for
// every backend; callers never branch on which one they were given.
//
// Writes that touch two tables (SaveAPIKey and its selection upsert,
// DeleteAPIKey and its selection cleanup) are atomic.
type CredentialStore interface {
	// Site and user access tokens.

	UpsertSiteAuthorization(ctx context.Context, siteID, accessToken string) error

	UpsertUserAuthorization(ctx context.Context, userID, accessToken string) error

	AccessTokenBySite(ctx context.Context, siteID string) (string, error)

	AccessTokenByUser(ctx context.Context, userID string) (string, error)

	// Encrypted AI-provider API keys.

	// SaveAPIKey stores the ciphertext and marks provider as the active
	// selection for (userID, siteID).
	SaveAPIKey(ctx context.Context, userID, siteID string, provider AIProvider, encryptedKey string) error

	// APIKey returns the stored ciphertext or ErrNotFound.
	APIKey(ctx context.Context, userID, siteID string, provider AIProvider) (string, error)

	// DeleteAPIKey removes the key and, if the selection for
	// (userID, siteID) points at provider, the selection too. Deleting a
	// nonexistent key is not an error.
	DeleteAPIKey(ctx context.Context, userID, siteID string, provider AIProvider) error

	// SelectedProvider returns the active provider or ErrNotFound.
	SelectedProvider(ctx context.Context, userID, siteID string) (AIProvider, error)

	Close() error
}
