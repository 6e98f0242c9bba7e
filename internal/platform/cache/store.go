// Package cache provides the expiring slot cache that sits in front of
// remote document-store reads: an in-memory mirror over a local persistent
// key-value store, with explicit TTL and manual invalidation.
package cache

import "errors"

// ErrClosed is returned by stores after Close has been called.
var ErrClosed = errors.New("cache: store is closed")

// LocalStore is the persistence layer underneath a Cache. It mirrors the
// minimal string key-value contract of a browser localStorage: implementations
// may fail on quota or I/O errors, and the Cache swallows those failures.
type LocalStore interface {
	// GetItem returns the stored value for key, and whether it was present.
	GetItem(key string) (string, bool, error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(key, value string) error

	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(key string) error
}
