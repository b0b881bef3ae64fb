package core

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var (
	ErrMissingMasterKey = errors.New("encryption master key is not configured")
	ErrDecryptionFailed = errors.New("decryption failed")
)

const (
	saltSize      = 64
	nonceSize     = 16
	tagSize       = 16
	keySize       = 32
	kdfIterations = 100_000
)

// CryptoService encrypts and decrypts opaque secret strings with
// AES-256-GCM. Every Encrypt call derives a one-off key from the master
// secret and a fresh random salt via PBKDF2-HMAC-SHA256; the iteration
// count is a deliberate latency floor against brute force and must not be
// lowered for throughput.
type CryptoService struct {
	masterKey []byte
}

// NewCryptoService creates a crypto service from the process-wide master
// secret. An empty secret is a configuration error, not a per-call one.
func NewCryptoService(masterKey string) (*CryptoService, error) {
	if masterKey == "" {
		return nil, ErrMissingMasterKey
	}
	return &CryptoService{masterKey: []byte(masterKey)}, nil
}

// Encrypt seals plaintext into a single base64 blob laid out as
// salt || nonce || tag || ciphertext. Two calls with the same plaintext
// never produce the same blob.
func (cs *CryptoService) Encrypt(plaintext string) (string, error) {
	encryptOps.Inc()

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	gcm, err := cs.aead(salt)
	if err != nil {
		return "", err
	}

	// Seal appends the tag to the ciphertext; the stored layout keeps a
	// fixed-length prefix, so move the tag ahead of the ciphertext.
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, saltSize+nonceSize+tagSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt. Any malformed input or authentication-tag
// mismatch yields ErrDecryptionFailed; tampered data is never returned as
// plaintext.
func (cs *CryptoService) Decrypt(blob string) (string, error) {
	decryptOps.Inc()

	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	if len(data) < saltSize+nonceSize+tagSize {
		return "", ErrDecryptionFailed
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	tag := data[saltSize+nonceSize : saltSize+nonceSize+tagSize]
	ciphertext := data[saltSize+nonceSize+tagSize:]

	gcm, err := cs.aead(salt)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

func (cs *CryptoService) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(cs.masterKey, salt, kdfIterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}
