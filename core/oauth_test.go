package core_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/cartermitchell13/flow-seo/core"
	"github.com/cartermitchell13/flow-seo/core/providers"
	"github.com/cartermitchell13/flow-seo/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFlow(t *testing.T) (*core.OAuthFlow, *storage.MemoryStore, *providers.MockProvider) {
	t.Helper()
	store := storage.NewMemoryStore()
	provider := providers.NewMockProvider()
	return core.NewOAuthFlow(provider, store, zap.NewNop()), store, provider
}

func stateFromURL(t *testing.T, rawURL string) string {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	return parsed.Query().Get("state")
}

func TestOAuthFlow_AuthorizationURL(t *testing.T) {
	flow, _, _ := newFlow(t)

	authURL := flow.AuthorizationURL()
	assert.True(t, strings.Contains(authURL, "response_type=code"))

	state := stateFromURL(t, authURL)
	assert.NotEmpty(t, state)

	// Every invocation mints a distinct state.
	other := stateFromURL(t, flow.AuthorizationURL())
	assert.NotEqual(t, state, other)
}

func TestOAuthFlow_Callback_Success(t *testing.T) {
	flow, store, _ := newFlow(t)
	ctx := context.Background()

	state := stateFromURL(t, flow.AuthorizationURL())

	err := flow.Callback(ctx, providers.ValidCode1, state)
	require.NoError(t, err)

	// Every authorized site got the access token.
	for _, site := range providers.Sites1 {
		token, err := store.AccessTokenBySite(ctx, site.ID)
		require.NoError(t, err)
		assert.Equal(t, providers.AccessToken1, token)
	}

	token, err := store.AccessTokenByUser(ctx, providers.User1.UserID)
	require.NoError(t, err)
	assert.Equal(t, providers.AccessToken1, token)
}

func TestOAuthFlow_Callback_InvalidState(t *testing.T) {
	flow, _, provider := newFlow(t)

	flow.AuthorizationURL()

	err := flow.Callback(context.Background(), providers.ValidCode1, "forged-state-value")
	assert.ErrorIs(t, err, core.ErrInvalidState)

	// Rejection happens before any token exchange is attempted.
	assert.Zero(t, provider.ExchangeCodeCalls)
}

func TestOAuthFlow_Callback_EmptyState(t *testing.T) {
	flow, _, provider := newFlow(t)

	err := flow.Callback(context.Background(), providers.ValidCode1, "")
	assert.ErrorIs(t, err, core.ErrInvalidState)
	assert.Zero(t, provider.ExchangeCodeCalls)
}

func TestOAuthFlow_Callback_StateSingleUse(t *testing.T) {
	flow, _, _ := newFlow(t)
	ctx := context.Background()

	state := stateFromURL(t, flow.AuthorizationURL())

	require.NoError(t, flow.Callback(ctx, providers.ValidCode1, state))

	err := flow.Callback(ctx, providers.ValidCode1, state)
	assert.ErrorIs(t, err, core.ErrInvalidState)
}

func TestOAuthFlow_Callback_ExchangeFails(t *testing.T) {
	flow, store, _ := newFlow(t)
	ctx := context.Background()

	state := stateFromURL(t, flow.AuthorizationURL())

	err := flow.Callback(ctx, "invalid_code", state)
	assert.ErrorIs(t, err, core.ErrTokenExchange)

	// Nothing was persisted.
	_, err = store.AccessTokenBySite(ctx, providers.Sites1[0].ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestOAuthFlow_Callback_ReauthorizationOverwrites(t *testing.T) {
	flow, store, provider := newFlow(t)
	ctx := context.Background()

	state1 := stateFromURL(t, flow.AuthorizationURL())
	require.NoError(t, flow.Callback(ctx, providers.ValidCode1, state1))

	// Re-authorization for the same sites with a new token.
	provider.RemapCode(providers.ValidCode1, "rotated_access_token", providers.User1, providers.Sites1)

	state2 := stateFromURL(t, flow.AuthorizationURL())
	require.NoError(t, flow.Callback(ctx, providers.ValidCode1, state2))

	token, err := store.AccessTokenBySite(ctx, providers.Sites1[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated_access_token", token)
}
