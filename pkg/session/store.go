package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore persists encoded session snapshots under a name.
type SnapshotStore interface {
	// Name identifies the store in logs and metrics.
	Name() string
	Save(ctx context.Context, name string, data []byte) error
	// Load returns ErrSnapshotNotFound when nothing is stored under name.
	Load(ctx context.Context, name string) ([]byte, error)
}

// FileStore stores each snapshot in the file named by the snapshot name.
type FileStore struct{}

// NewFileStore creates a file snapshot store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Name implements SnapshotStore.
func (f *FileStore) Name() string {
	return "file"
}

// Save implements SnapshotStore.
func (f *FileStore) Save(_ context.Context, name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("snapshot file name cannot be empty")
	}

	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	return nil
}

// Load implements SnapshotStore.
func (f *FileStore) Load(_ context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("snapshot file name cannot be empty")
	}

	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}

		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	return data, nil
}

// RedisStore stores snapshots as plain string values in Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis snapshot store. Keys are prefix + "snapshot:" + name.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + "snapshot:" + name
}

// Name implements SnapshotStore.
func (s *RedisStore) Name() string {
	return "redis"
}

// Save implements SnapshotStore.
func (s *RedisStore) Save(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("snapshot name cannot be empty")
	}

	if err := s.client.Set(ctx, s.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot to redis: %w", err)
	}

	return nil
}

// Load implements SnapshotStore.
func (s *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("snapshot name cannot be empty")
	}

	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}

		return nil, fmt.Errorf("failed to load snapshot from redis: %w", err)
	}

	return data, nil
}
