// Package storage provides the key-value persistence port used for session fields.
package storage

import "context"

// Store is a string key-value store.
// Get reports ok=false for a missing key; Remove of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
