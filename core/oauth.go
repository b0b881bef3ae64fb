package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var ErrInvalidState = errors.New("invalid oauth state")

// An issued state is valid for this long before the callback must arrive.
const stateTTL = 10 * time.Minute

// OAuthFlow drives the authorization-code grant against the identity
// provider and persists the resulting tokens. State values are single use:
// each one is minted in AuthorizationURL and consumed by the first callback
// that presents it.
type OAuthFlow struct {
	provider IdentityProvider
	store    CredentialStore
	states   *cache.Cache
	log      *zap.Logger
}

func NewOAuthFlow(provider IdentityProvider, store CredentialStore, log *zap.Logger) *OAuthFlow {
	return &OAuthFlow{
		provider: provider,
		store:    store,
		states:   cache.New(stateTTL, 2*stateTTL),
		log:      log,
	}
}

// AuthorizationURL mints a fresh CSRF state and returns the provider's
// consent-screen URL carrying it.
func (f *OAuthFlow) AuthorizationURL() string {
	state := uuid.NewString()
	f.states.Set(state, time.Now(), cache.DefaultExpiration)
	return f.provider.AuthorizeURL(state)
}

// consumeState reports whether state was issued by this process and is
// still outstanding. A state validates at most once.
func (f *OAuthFlow) consumeState(state string) bool {
	if state == "" {
		return false
	}
	if _, ok := f.states.Get(state); !ok {
		return false
	}
	f.states.Delete(state)
	return true
}

// Callback completes the flow: it validates the CSRF state, exchanges the
// code for an access token, and persists one SiteAuthorization per
// authorized site plus one UserAuthorization for the identity.
//
// The state check happens before any network call. Site upserts are each
// independently idempotent, so a partial failure is safe to retry by
// restarting the flow; the error reports the authorization as incomplete.
func (f *OAuthFlow) Callback(ctx context.Context, code, state string) error {
	if !f.consumeState(state) {
		return ErrInvalidState
	}

	token, err := f.provider.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}

	identity, err := f.provider.AuthorizedBy(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to fetch authorizing identity: %w", err)
	}

	sites, err := f.provider.Sites(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to list authorized sites: %w", err)
	}

	for _, site := range sites {
		if err := f.store.UpsertSiteAuthorization(ctx, site.ID, token.AccessToken); err != nil {
			return fmt.Errorf("authorization incomplete: failed to persist site %s: %w", site.ID, err)
		}
	}

	if err := f.store.UpsertUserAuthorization(ctx, identity.UserID, token.AccessToken); err != nil {
		return fmt.Errorf("authorization incomplete: failed to persist user authorization: %w", err)
	}

	f.log.Info("authorization completed",
		zap.String("user_id", identity.UserID),
		zap.Int("sites", len(sites)),
	)

	return nil
}
