// Package seen records which offers have already been handled.
package seen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
	// MarkIfNew marks key and reports whether this call was the one that did.
	MarkIfNew(ctx context.Context, key string) (bool, error)
}

// Memory is the default store; it forgets everything on restart.
type Memory struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{keys: make(map[string]struct{})}
}

func (m *Memory) Seen(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.keys[key]
	return ok, nil
}

func (m *Memory) Mark(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = struct{}{}
	return nil
}

func (m *Memory) MarkIfNew(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

const keyPrefix = "sellbot:seen:"

// Redis keeps seen keys across restarts, namespaced per account.
type Redis struct {
	rdb       *redis.Client
	namespace string
	ttl       time.Duration
}

func NewRedis(rdb *redis.Client, namespace string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Redis{rdb: rdb, namespace: namespace, ttl: ttl}
}

func (r *Redis) key(k string) string {
	return keyPrefix + r.namespace + ":" + k
}

func (r *Redis) Seen(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("seen exists: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) Mark(ctx context.Context, key string) error {
	if err := r.rdb.Set(ctx, r.key(key), "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("seen set: %w", err)
	}
	return nil
}

func (r *Redis) MarkIfNew(ctx context.Context, key string) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.key(key), "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("seen setnx: %w", err)
	}
	return ok, nil
}
