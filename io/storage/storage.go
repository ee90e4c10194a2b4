// Package storage provides key/value backends for the serialized settings.
// A backend stores opaque bytes; serialization happens one layer above.
package storage

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Read if nothing is stored under the key.
var ErrNotExist = errors.New("key does not exist")

// Adapter reads and writes opaque values under a key.
type Adapter interface {
	// Read returns the value stored under the key. ErrNotExist is returned
	// if there's no such key.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores the value under the key. An existing value will be replaced.
	Write(ctx context.Context, key string, data []byte) error

	// Remove deletes the key. Removing a non-existing key is not an error.
	Remove(ctx context.Context, key string) error

	// Type returns the type of the backend, e.g. mem, disk, bolt, s3
	Type() string
}
