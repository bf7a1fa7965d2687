package booking

import (
	"context"

	"github.com/eshaffer321/tablebook-go/internal/storage"
)

// Storage persists session fields as string values under fixed keys
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// RedisConfig configures a redis-backed Storage
type RedisConfig = storage.RedisConfig

// NewMemoryStorage returns storage that lives as long as the process
func NewMemoryStorage() Storage {
	return storage.NewMemoryStore()
}

// NewFileStorage returns storage kept in a JSON file readable only by the owner
func NewFileStorage(path string) Storage {
	return storage.NewFileStore(path)
}

// NewRedisStorage connects to redis and returns storage shared across processes.
// Call Close on the result when done.
func NewRedisStorage(ctx context.Context, cfg RedisConfig) (*storage.RedisStore, error) {
	return storage.NewRedisStore(ctx, cfg)
}
