package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/cartermitchell13/flow-seo/core"
	"github.com/cartermitchell13/flow-seo/core/providers"
	"github.com/cartermitchell13/flow-seo/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "test-session-signing-secret"

func newSessionManager(ttl time.Duration) (*core.SessionManager, *storage.MemoryStore, *providers.MockProvider) {
	store := storage.NewMemoryStore()
	provider := providers.NewMockProvider()
	return core.NewSessionManager(testSessionSecret, ttl, store, provider), store, provider
}

func TestSession_IssueAndVerify(t *testing.T) {
	manager, _, _ := newSessionManager(time.Hour)

	token, expiresAt, err := manager.Issue(providers.User1)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	identity, ok := manager.Verify(token)
	require.True(t, ok)
	assert.Equal(t, providers.User1.UserID, identity.UserID)
	assert.Equal(t, providers.User1.Email, identity.Email)
	assert.Equal(t, providers.User1.FirstName, identity.FirstName)
	assert.Equal(t, providers.User1.LastName, identity.LastName)
}

func TestSession_VerifyExpired(t *testing.T) {
	manager, _, _ := newSessionManager(-2 * time.Second)

	token, _, err := manager.Issue(providers.User1)
	require.NoError(t, err)

	identity, ok := manager.Verify(token)
	assert.False(t, ok)
	assert.Nil(t, identity)
}

func TestSession_VerifyWrongSecret(t *testing.T) {
	manager, store, provider := newSessionManager(time.Hour)

	token, _, err := manager.Issue(providers.User1)
	require.NoError(t, err)

	other := core.NewSessionManager("a-different-secret", time.Hour, store, provider)
	identity, ok := other.Verify(token)
	assert.False(t, ok)
	assert.Nil(t, identity)
}

func TestSession_VerifyMalformed(t *testing.T) {
	manager, _, _ := newSessionManager(time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.e30."} {
		identity, ok := manager.Verify(token)
		assert.False(t, ok)
		assert.Nil(t, identity)
	}
}

func TestSession_ExchangeIDToken(t *testing.T) {
	manager, store, _ := newSessionManager(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.UpsertSiteAuthorization(ctx, "site_1", providers.AccessToken1))

	token, expiresAt, err := manager.ExchangeIDToken(ctx, "site_1", providers.IDToken1)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	identity, ok := manager.Verify(token)
	require.True(t, ok)
	assert.Equal(t, providers.User1.UserID, identity.UserID)
}

func TestSession_ExchangeIDToken_SiteNotAuthorized(t *testing.T) {
	manager, _, provider := newSessionManager(time.Hour)

	_, _, err := manager.ExchangeIDToken(context.Background(), "unknown_site", providers.IDToken1)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	// The provider must not be consulted when no access token exists.
	assert.Zero(t, provider.VerifyIDTokenCalls)
}

func TestSession_ExchangeIDToken_InvalidIDToken(t *testing.T) {
	manager, store, _ := newSessionManager(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.UpsertSiteAuthorization(ctx, "site_1", providers.AccessToken1))

	_, _, err := manager.ExchangeIDToken(ctx, "site_1", "forged_id_token")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}
