package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCacheFromClient(client, time.Minute), mr
}

func TestRedisCache_GetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Get(context.Background(), "missing")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_SetNXOnlyFirstWins(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "k", "first", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX() = %v, %v; want true, nil", ok, err)
	}

	ok, err = c.SetNX(ctx, "k", "second", time.Minute)
	if err != nil || ok {
		t.Fatalf("second SetNX() = %v, %v; want false, nil", ok, err)
	}

	got, _ := c.Get(ctx, "k")
	if got != "first" {
		t.Errorf("Get() = %q, want first", got)
	}
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.SetWithTTL(ctx, "k", "v", time.Second); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after expiry error = %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_DefaultTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.SetWithTTL(ctx, "k", "v", 0); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Errorf("TTL = %v, want cache default %v", ttl, time.Minute)
	}

	if _, err := c.SetNX(ctx, "n", "v", 0); err != nil {
		t.Fatalf("SetNX() error = %v", err)
	}
	if ttl := mr.TTL("n"); ttl != time.Minute {
		t.Errorf("SetNX TTL = %v, want cache default %v", ttl, time.Minute)
	}
}

func TestRedisCache_Delete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.SetWithTTL(ctx, "k", "v", 0); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if mr.Exists("k") {
		t.Error("key still present after Delete()")
	}
}
