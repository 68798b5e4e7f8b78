// Package storage provides the persistent key/value store that backs
// session state. Values are JSON-serialized blobs keyed by string, with
// best-effort durability scoped to the local machine.
package storage

import "errors"

// ErrDecode indicates that a stored value exists but could not be decoded.
// Callers decide whether to fall back to an empty default.
var ErrDecode = errors.New("storage: corrupt value")

// Store is a synchronous key/value store for JSON-serializable values.
type Store interface {
	// Read decodes the value stored under key into v.
	// Returns (false, nil) when the key is absent. A present but
	// undecodable value returns (true, err) with err wrapping ErrDecode.
	Read(key string, v any) (bool, error)

	// Write serializes v and stores it under key, overwriting any prior value.
	Write(key string, v any) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Close releases the underlying resources.
	Close() error
}
