package storage

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by a tier that cannot serve requests at all,
// e.g. a secure tier with no key material.
var ErrUnavailable = errors.New("store unavailable")

// Store is a durable string key-value tier.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Ensure concrete types implement Store.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*SecureStore)(nil)
	_ Store = (*RedisStore)(nil)
)
