// Package storage provides the durable key-value namespace that backs
// the store's primary, backup and legacy slots. The namespace behaves
// like browser local storage: flat string keys, string values, a hard
// byte capacity shared by every key, and no transactions across keys.
package storage

import "errors"

// ErrQuotaExceeded is returned by Set when writing the value would push
// the namespace past its byte capacity. The namespace is left unchanged.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// Namespace is a flat durable key-value space with a byte quota.
type Namespace interface {
	// Get returns the value for key and whether the key exists.
	Get(key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	// Returns ErrQuotaExceeded without changing state when the write
	// would exceed the capacity.
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys lists every key currently present, sorted.
	Keys() ([]string, error)
	// UsedBytes reports the total size of all keys and values.
	UsedBytes() (int64, error)
	Close() error
}
