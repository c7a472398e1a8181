package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryProcessedEventStore(t *testing.T) {
	store := NewMemoryProcessedEventStore().(*memoryProcessedEventStore)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := store.Claim(ctx, "c1/m1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first claim to succeed, got ok=%v err=%v", ok, err)
	}
	if ok, _ := store.Claim(ctx, "c1/m1", time.Minute); ok {
		t.Fatalf("expected second claim to be rejected")
	}

	if err := store.Release(ctx, "c1/m1"); err != nil {
		t.Fatalf("unexpected release error: %v", err)
	}
	if ok, _ := store.Claim(ctx, "c1/m1", time.Minute); !ok {
		t.Fatalf("expected claim after release to succeed")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := store.Claim(ctx, "c1/m1", time.Minute); !ok {
		t.Fatalf("expected claim after expiry to succeed")
	}
	if ok, _ := store.Claim(ctx, "  ", time.Minute); !ok {
		t.Fatalf("expected blank key to be claimable")
	}
}

func TestMemoryProcessedEventStore_EvictsExpired(t *testing.T) {
	store := NewMemoryProcessedEventStore().(*memoryProcessedEventStore)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, _ = store.Claim(context.Background(), "a", time.Second)
	now = now.Add(time.Minute)
	_, _ = store.Claim(context.Background(), "b", time.Second)

	if _, ok := store.items["a"]; ok {
		t.Fatalf("expected expired key to be evicted")
	}
}

func TestMemoryProcessedEventStore_EvictsAtMostOncePerInterval(t *testing.T) {
	store := NewMemoryProcessedEventStore().(*memoryProcessedEventStore)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = store.Claim(ctx, "a", time.Second)
	now = now.Add(2 * time.Second)
	_, _ = store.Claim(ctx, "b", time.Hour)
	if _, ok := store.items["a"]; !ok {
		t.Fatalf("expected no eviction scan before the interval elapses")
	}
	if ok, _ := store.Claim(ctx, "a", time.Second); !ok {
		t.Fatalf("expected expired key to be claimable without eviction")
	}

	now = now.Add(memoryEvictInterval + 2*time.Second)
	_, _ = store.Claim(ctx, "c", time.Hour)
	if _, ok := store.items["a"]; ok {
		t.Fatalf("expected expired key evicted once the interval elapsed")
	}
	if _, ok := store.items["b"]; !ok {
		t.Fatalf("expected live key to be kept")
	}
}

type mockRedisSetNXDeleter struct {
	lastKey string
	lastTTL time.Duration
	deleted []string
	setOK   bool
	setErr  error
	delErr  error
}

func (m *mockRedisSetNXDeleter) SetNX(ctx context.Context, key string, _ interface{}, expiration time.Duration) *redis.BoolCmd {
	m.lastKey = key
	m.lastTTL = expiration
	cmd := redis.NewBoolCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	cmd.SetVal(m.setOK)
	return cmd
}

func (m *mockRedisSetNXDeleter) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.deleted = append(m.deleted, keys...)
	cmd := redis.NewIntCmd(ctx)
	if m.delErr != nil {
		cmd.SetErr(m.delErr)
		return cmd
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func TestRedisProcessedEventStore(t *testing.T) {
	t.Run("nil receiver fail-open", func(t *testing.T) {
		var s *redisProcessedEventStore
		if ok, err := s.Claim(context.Background(), "c1/m1", time.Minute); !ok || err != nil {
			t.Fatalf("expected fail-open for nil store")
		}
	})

	t.Run("claim usa prefijo y ttl", func(t *testing.T) {
		mock := &mockRedisSetNXDeleter{setOK: true}
		s := &redisProcessedEventStore{client: mock, prefix: "responder:event:"}
		ok, err := s.Claim(context.Background(), "c1/m1", 24*time.Hour)
		if err != nil || !ok {
			t.Fatalf("expected claim, got ok=%v err=%v", ok, err)
		}
		if mock.lastKey != "responder:event:c1/m1" || mock.lastTTL != 24*time.Hour {
			t.Fatalf("unexpected key/ttl: %q %v", mock.lastKey, mock.lastTTL)
		}
	})

	t.Run("clave ya tomada", func(t *testing.T) {
		s := &redisProcessedEventStore{client: &mockRedisSetNXDeleter{setOK: false}, prefix: "responder:event:"}
		if ok, _ := s.Claim(context.Background(), "c1/m1", time.Minute); ok {
			t.Fatalf("expected duplicate claim to be rejected")
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		s := &redisProcessedEventStore{client: &mockRedisSetNXDeleter{setErr: errors.New("redis down")}, prefix: "responder:event:"}
		ok, err := s.Claim(context.Background(), "c1/m1", time.Minute)
		if !ok || err == nil {
			t.Fatalf("expected ok=true with error, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("release borra la clave", func(t *testing.T) {
		mock := &mockRedisSetNXDeleter{}
		s := &redisProcessedEventStore{client: mock, prefix: "responder:event:"}
		if err := s.Release(context.Background(), "c1/m1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(mock.deleted) != 1 || mock.deleted[0] != "responder:event:c1/m1" {
			t.Fatalf("unexpected deleted keys %+v", mock.deleted)
		}
	})
}

func TestNewRedisProcessedEventStore_NilClient(t *testing.T) {
	if NewRedisProcessedEventStore(nil) != nil {
		t.Fatalf("expected nil store for nil client")
	}
}
