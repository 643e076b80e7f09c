package slot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Slot is one named value. Load returns "" when nothing has been stored.
type Slot interface {
	Load(ctx context.Context) (string, error)
	Store(ctx context.Context, value string) error
}

type Memory struct {
	mu    sync.Mutex
	value string
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, nil
}

func (m *Memory) Store(_ context.Context, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	return nil
}

type Redis struct {
	redis *redis.Client
	key   string
}

func NewRedis(rdb *redis.Client, key string) *Redis {
	return &Redis{redis: rdb, key: key}
}

func (r *Redis) Load(ctx context.Context) (string, error) {
	raw, err := r.redis.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return raw, nil
}

func (r *Redis) Store(ctx context.Context, value string) error {
	if err := r.redis.Set(ctx, r.key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}
