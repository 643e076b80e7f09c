package navigation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingStore holds at most one SampleInit. Get returns nil when empty.
type PendingStore interface {
	Set(ctx context.Context, init SampleInit) error
	Get(ctx context.Context) (*SampleInit, error)
	Clear(ctx context.Context) error
}

type MemoryPending struct {
	mu   sync.Mutex
	init *SampleInit
}

func NewMemoryPending() *MemoryPending {
	return &MemoryPending{}
}

func (m *MemoryPending) Set(_ context.Context, init SampleInit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init = &init
	return nil
}

func (m *MemoryPending) Get(context.Context) (*SampleInit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.init == nil {
		return nil, nil
	}
	cp := *m.init
	return &cp, nil
}

func (m *MemoryPending) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init = nil
	return nil
}

type RedisPending struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
}

func NewRedisPending(rdb *redis.Client, key string, ttl time.Duration) *RedisPending {
	return &RedisPending{redis: rdb, key: key, ttl: ttl}
}

func (r *RedisPending) Set(ctx context.Context, init SampleInit) error {
	b, err := json.Marshal(init)
	if err != nil {
		return err
	}
	return r.redis.Set(ctx, r.key, string(b), r.ttl).Err()
}

func (r *RedisPending) Get(ctx context.Context) (*SampleInit, error) {
	raw, err := r.redis.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var init SampleInit
	if err := json.Unmarshal([]byte(raw), &init); err != nil {
		return nil, err
	}
	return &init, nil
}

func (r *RedisPending) Clear(ctx context.Context) error {
	return r.redis.Del(ctx, r.key).Err()
}
