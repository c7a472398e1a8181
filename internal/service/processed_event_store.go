package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedEventStore recuerda que eventos ya se tomaron para procesar, de modo
// que una reentrega de la plataforma no genere una segunda respuesta.
type ProcessedEventStore interface {
	// Claim devuelve true si la clave no estaba tomada y ahora lo esta.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release libera la clave para permitir un reintento.
	Release(ctx context.Context, key string) error
}

const memoryEvictInterval = time.Minute

type memoryProcessedEventStore struct {
	mu        sync.Mutex
	items     map[string]time.Time
	now       func() time.Time
	lastEvict time.Time
}

func NewMemoryProcessedEventStore() ProcessedEventStore {
	return &memoryProcessedEventStore{
		items: make(map[string]time.Time),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryProcessedEventStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(key) == "" {
		return true, nil
	}
	now := s.now()
	if exp, ok := s.items[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.items[key] = now.Add(ttl)
	if now.Sub(s.lastEvict) >= memoryEvictInterval {
		s.evictExpired(now)
		s.lastEvict = now
	}
	return true, nil
}

func (s *memoryProcessedEventStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *memoryProcessedEventStore) evictExpired(now time.Time) {
	for k, exp := range s.items {
		if !now.Before(exp) {
			delete(s.items, k)
		}
	}
}

type redisSetNXDeleter interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisProcessedEventStore struct {
	client redisSetNXDeleter
	prefix string
}

func NewRedisProcessedEventStore(client *redis.Client) ProcessedEventStore {
	if client == nil {
		return nil
	}
	return &redisProcessedEventStore{
		client: client,
		prefix: "responder:event:",
	}
}

// Claim falla abierto: si Redis no responde devuelve true junto con el error.
func (s *redisProcessedEventStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s == nil || s.client == nil || strings.TrimSpace(key) == "" {
		return true, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	ok, err := s.client.SetNX(ctx, s.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}

func (s *redisProcessedEventStore) Release(ctx context.Context, key string) error {
	if s == nil || s.client == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.prefix+key).Err()
}
