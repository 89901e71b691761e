package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { r.Close() })
	return r, mr
}

func TestRedis_GetSet(t *testing.T) {
	t.Parallel()
	r, mr := newTestRedis(t)
	ctx := context.Background()

	if _, ok, err := r.Get(ctx, "film_by_id:abc"); ok || err != nil {
		t.Fatalf("Get(missing) = ok %v, err %v; want clean miss", ok, err)
	}

	if err := r.Set(ctx, "film_by_id:abc", []byte(`{"id":"abc"}`), 300*time.Second); err != nil {
		t.Fatal(err)
	}
	val, ok, err := r.Get(ctx, "film_by_id:abc")
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v; want hit", ok, err)
	}
	if string(val) != `{"id":"abc"}` {
		t.Errorf("value = %s", val)
	}

	if ttl := mr.TTL("film_by_id:abc"); ttl != 300*time.Second {
		t.Errorf("ttl = %v, want 300s", ttl)
	}
}

func TestRedis_Expiry(t *testing.T) {
	t.Parallel()
	r, mr := newTestRedis(t)
	ctx := context.Background()

	if err := r.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(61 * time.Second)

	if _, ok, err := r.Get(ctx, "k"); ok || err != nil {
		t.Errorf("Get after expiry = ok %v, err %v; want miss", ok, err)
	}
}

func TestRedis_ServerDown(t *testing.T) {
	t.Parallel()
	r, mr := newTestRedis(t)
	mr.Close()
	ctx := context.Background()

	if _, _, err := r.Get(ctx, "k"); err == nil {
		t.Error("Get against a closed server should fail")
	}
	if err := r.Set(ctx, "k", []byte("v"), time.Minute); err == nil {
		t.Error("Set against a closed server should fail")
	}
	if err := r.Ping(ctx); err == nil {
		t.Error("Ping against a closed server should fail")
	}
}

func TestNewRedis_PingFails(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedis(ctx, RedisOptions{Addr: addr, DialTimeout: 200 * time.Millisecond}); err == nil {
		t.Fatal("NewRedis should fail when the server is unreachable")
	}
}
