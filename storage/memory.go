package storage

import (
	"context"
	"sync"

	"github.com/cartermitchell13/flow-seo/core"
)

type keyTuple struct {
	userID   string
	siteID   string
	provider core.AIProvider
}

type selectionTuple struct {
	userID string
	siteID string
}

// MemoryStore is an in-process CredentialStore used by unit tests.
type MemoryStore struct {
	mu sync.Mutex

	siteTokens map[string]string
	userTokens map[string]string
	apiKeys    map[keyTuple]string
	selections map[selectionTuple]core.AIProvider
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		siteTokens: make(map[string]string),
		userTokens: make(map[string]string),
		apiKeys:    make(map[keyTuple]string),
		selections: make(map[selectionTuple]core.AIProvider),
	}
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) UpsertSiteAuthorization(ctx context.Context, siteID, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.siteTokens[siteID] = accessToken
	return nil
}

func (s *MemoryStore) UpsertUserAuthorization(ctx context.Context, userID, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userTokens[userID] = accessToken
	return nil
}

func (s *MemoryStore) AccessTokenBySite(ctx context.Context, siteID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.siteTokens[siteID]
	if !ok {
		return "", core.ErrNotFound
	}
	return token, nil
}

func (s *MemoryStore) AccessTokenByUser(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.userTokens[userID]
	if !ok {
		return "", core.ErrNotFound
	}
	return token, nil
}

func (s *MemoryStore) SaveAPIKey(ctx context.Context, userID, siteID string, provider core.AIProvider, encryptedKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apiKeys[keyTuple{userID, siteID, provider}] = encryptedKey
	s.selections[selectionTuple{userID, siteID}] = provider
	return nil
}

func (s *MemoryStore) APIKey(ctx context.Context, userID, siteID string, provider core.AIProvider) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[keyTuple{userID, siteID, provider}]
	if !ok {
		return "", core.ErrNotFound
	}
	return key, nil
}

func (s *MemoryStore) DeleteAPIKey(ctx context.Context, userID, siteID string, provider core.AIProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.apiKeys, keyTuple{userID, siteID, provider})
	if s.selections[selectionTuple{userID, siteID}] == provider {
		delete(s.selections, selectionTuple{userID, siteID})
	}
	return nil
}

func (s *MemoryStore) SelectedProvider(ctx context.Context, userID, siteID string) (core.AIProvider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	provider, ok := s.selections[selectionTuple{userID, siteID}]
	if !ok {
		return "", core.ErrNotFound
	}
	return provider, nil
}

// CorruptAPIKey overwrites a stored ciphertext in place so tests can
// exercise integrity-failure handling.
func (s *MemoryStore) CorruptAPIKey(userID, siteID string, provider core.AIProvider, garbage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKeys[keyTuple{userID, siteID, provider}] = garbage
}
