package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aicore/internal/utils"
)

// ErrUnknownBackend is returned by New for unrecognised backend names
var ErrUnknownBackend = errors.New("unknown cache backend")

const keyPrefix = "aicore:chat:"

// Cache stores serialized chat results keyed by request fingerprint
type Cache interface {
	// Get returns the value and true on a hit
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value for ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Fingerprint derives a stable cache key from a request. Equal requests
// always map to the same key.
func Fingerprint(request interface{}) (string, error) {
	hash, err := utils.HashJSON(request)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint request: %w", err)
	}
	return keyPrefix + hash, nil
}
