package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const secureKeyInfo = "rideshare-session-store"

// SecureStore encrypts values with AES-256-GCM before handing them to an
// inner Store. Keys are stored in clear.
type SecureStore struct {
	inner Store
	aead  cipher.AEAD
}

// NewSecureStore derives an AES key from secret with HKDF-SHA256. With an
// empty secret the store is unavailable: every call returns ErrUnavailable.
func NewSecureStore(inner Store, secret string) (*SecureStore, error) {
	s := &SecureStore{inner: inner}
	if secret == "" || inner == nil {
		return s, nil
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(secureKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive store key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	s.aead, err = cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return s, nil
}

// Available reports whether the store has key material.
func (s *SecureStore) Available() bool {
	return s.aead != nil
}

// Get returns the decrypted value. A value that does not open under the
// current key reads as absent.
func (s *SecureStore) Get(ctx context.Context, key string) (string, bool, error) {
	if !s.Available() {
		return "", false, ErrUnavailable
	}
	sealed, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	plain, err := s.open(sealed)
	if err != nil {
		return "", false, nil
	}
	return plain, true, nil
}

func (s *SecureStore) Set(ctx context.Context, key, value string) error {
	if !s.Available() {
		return ErrUnavailable
	}
	sealed, err := s.seal(value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *SecureStore) Delete(ctx context.Context, key string) error {
	if !s.Available() {
		return ErrUnavailable
	}
	return s.inner.Delete(ctx, key)
}

func (s *SecureStore) seal(plain string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	ct := s.aead.Seal(nil, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, ct...)), nil
}

func (s *SecureStore) open(sealed string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	ns := s.aead.NonceSize()
	if len(blob) < ns {
		return "", errors.New("ciphertext too short")
	}
	plain, err := s.aead.Open(nil, blob[:ns], blob[ns:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
