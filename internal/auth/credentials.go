package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/fieldops/maintenance-desk/internal/domain"
)

const credentialKeyInfo = "asset-credentials-v1"

// ErrSealedData means a credential blob could not be opened.
var ErrSealedData = errors.New("sealed credentials are corrupt or were sealed with another key")

// CredentialCipher seals device credentials with XChaCha20-Poly1305 under a
// key derived from the configured secret. The asset id is bound as
// associated data so a blob cannot be moved to another asset.
type CredentialCipher struct {
	key []byte
}

// NewCredentialCipher derives the sealing key from secret.
func NewCredentialCipher(secret string) (*CredentialCipher, error) {
	if secret == "" {
		return nil, errors.New("credential secret must not be empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(credentialKeyInfo)), key); err != nil {
		return nil, err
	}
	return &CredentialCipher{key: key}, nil
}

// Seal encrypts creds for assetID. The nonce is prepended to the ciphertext.
func (c *CredentialCipher) Seal(assetID string, creds domain.AssetCredentials) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, []byte(assetID)), nil
}

// Open decrypts a blob produced by Seal for the same assetID.
func (c *CredentialCipher) Open(assetID string, sealed []byte) (domain.AssetCredentials, error) {
	var creds domain.AssetCredentials
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return creds, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return creds, ErrSealedData
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(assetID))
	if err != nil {
		return creds, ErrSealedData
	}
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return creds, ErrSealedData
	}
	return creds, nil
}
