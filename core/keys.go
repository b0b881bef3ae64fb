package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// KeyService stores and retrieves AI-provider API keys. Plaintext keys
// exist only transiently in memory here; the store only ever sees
// ciphertext, and key material is never logged.
type KeyService struct {
	crypto *CryptoService
	store  CredentialStore
	log    *zap.Logger
}

func NewKeyService(crypto *CryptoService, store CredentialStore, log *zap.Logger) *KeyService {
	return &KeyService{
		crypto: crypto,
		store:  store,
		log:    log,
	}
}

func (s *KeyService) SaveKey(ctx context.Context, userID, siteID string, provider AIProvider, plaintextKey string) error {
	if !provider.Valid() {
		return ErrUnsupportedProvider
	}

	encrypted, err := s.crypto.Encrypt(plaintextKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt api key: %w", err)
	}

	if err := s.store.SaveAPIKey(ctx, userID, siteID, provider, encrypted); err != nil {
		return fmt.Errorf("failed to save api key: %w", err)
	}

	return nil
}

// Key returns the decrypted API key, or ErrNotFound if none is stored.
// A record that fails authentication on decrypt is treated as absent:
// the integrity failure is logged and counted, but this path is not worth
// failing the request over.
func (s *KeyService) Key(ctx context.Context, userID, siteID string, provider AIProvider) (string, error) {
	encrypted, err := s.store.APIKey(ctx, userID, siteID, provider)
	if err != nil {
		return "", err
	}

	plaintext, err := s.crypto.Decrypt(encrypted)
	if err != nil {
		if errors.Is(err, ErrDecryptionFailed) {
			decryptIntegrityFailures.Inc()
			s.log.Error("stored api key failed integrity check",
				zap.String("user_id", userID),
				zap.String("site_id", siteID),
				zap.String("provider", string(provider)),
			)
			return "", ErrNotFound
		}
		return "", err
	}

	return plaintext, nil
}

// DeleteKey removes a stored key. Deleting a key that does not exist is
// not an error.
func (s *KeyService) DeleteKey(ctx context.Context, userID, siteID string, provider AIProvider) error {
	if !provider.Valid() {
		return ErrUnsupportedProvider
	}
	return s.store.DeleteAPIKey(ctx, userID, siteID, provider)
}

// SelectedProvider returns the provider the user last configured for the
// site, or ErrNotFound if no key has been saved.
func (s *KeyService) SelectedProvider(ctx context.Context, userID, siteID string) (AIProvider, error) {
	return s.store.SelectedProvider(ctx, userID, siteID)
}
