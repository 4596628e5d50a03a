package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend persists session snapshots. Load returns nil without error when
// nothing is stored for the id.
type Backend interface {
	Name() string
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, id string, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryBackend keeps snapshots in process memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string][]byte)}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	data, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decode(data)
}

func (m *MemoryBackend) Save(_ context.Context, id string, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	m.mu.Lock()
	m.items[id] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
	return nil
}

const redisKeyPrefix = "recruit-bot:session:"

// RedisBackend stores snapshots as JSON strings so sessions survive restarts.
// Keys expire after ttl; zero keeps them forever.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend connects to url (redis://...) and checks the connection.
func NewRedisBackend(ctx context.Context, url string, ttl time.Duration) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisBackend{client: client, ttl: ttl}, nil
}

func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) Load(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return decode(data)
}

func (r *RedisBackend) Save(ctx context.Context, id string, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+id, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}
