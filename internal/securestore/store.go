// Package securestore provides key-value storage for credential secrets.
//
// Values are opaque strings. Implementations must be safe for concurrent use.
package securestore

import (
	"context"
	"errors"
)

// Well-known keys.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyRole         = "role"
)

// Sentinel errors.
var (
	ErrNotFound          = errors.New("securestore: key not found")
	ErrCorrupted         = errors.New("securestore: store corrupted")
	ErrPersist           = errors.New("securestore: failed to persist")
	ErrMissingPassphrase = errors.New("securestore: passphrase is required")
)

// Store is a secret key-value store.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
