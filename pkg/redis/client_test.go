package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.values[key] = toString(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeStore) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	val, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if _, ok := f.values[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.values[key] = toString(value)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if _, ok := f.values[key]; !ok {
		f.values[key] = "0"
	}
	f.values[key] = incrString(f.values[key])
	cmd.SetVal(parseInt(f.values[key]))
	return cmd
}

func (f *fakeStore) Expire(ctx context.Context, key string, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	_, ok := f.values[key]
	cmd.SetVal(ok)
	return cmd
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return ""
}

func incrString(val string) string {
	n := parseInt(val)
	return strconv.FormatInt(n+1, 10)
}

func parseInt(val string) int64 {
	n, _ := strconv.ParseInt(val, 10, 64)
	return n
}

func TestSetAndGet(t *testing.T) {
	t.Parallel()

	client := NewWithStore(newFakeStore())
	ctx := context.Background()

	if err := client.Set(ctx, client.CartCacheKey("dev-1"), `{"lines":[]}`, time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, err := client.Get(ctx, client.CartCacheKey("dev-1"))
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != `{"lines":[]}` {
		t.Fatalf("Get returned %q", got)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	t.Parallel()

	client := NewWithStore(newFakeStore())

	_, err := client.Get(context.Background(), client.CartCacheKey("missing"))
	if err != redis.Nil {
		t.Fatalf("expected redis.Nil, got %v", err)
	}
}

func TestSetNXOnlyFirstWins(t *testing.T) {
	t.Parallel()

	client := NewWithStore(newFakeStore())
	ctx := context.Background()
	key := client.GuestSessionKey("dev-2")

	ok, err := client.SetNX(ctx, key, "guest-a", time.Hour)
	if err != nil || !ok {
		t.Fatalf("first SetNX: ok=%v err=%v", ok, err)
	}

	ok, err = client.SetNX(ctx, key, "guest-b", time.Hour)
	if err != nil {
		t.Fatalf("second SetNX returned error: %v", err)
	}
	if ok {
		t.Fatal("second SetNX should not overwrite")
	}

	got, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != "guest-a" {
		t.Fatalf("expected guest-a, got %q", got)
	}
}

func TestDelRemovesKey(t *testing.T) {
	t.Parallel()

	client := NewWithStore(newFakeStore())
	ctx := context.Background()
	key := client.CartCacheKey("dev-3")

	if err := client.Set(ctx, key, "x", 0); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("Del returned error: %v", err)
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestKeyNamespacing(t *testing.T) {
	t.Parallel()

	client := NewWithStore(newFakeStore())

	if got := client.CartCacheKey("abc"); got != "bkh:cart_cache:abc" {
		t.Fatalf("CartCacheKey = %q", got)
	}
	if got := client.GuestSessionKey("abc"); got != "bkh:guest_session:abc" {
		t.Fatalf("GuestSessionKey = %q", got)
	}
	if got := client.LockKey("cron"); got != "bkh:lock:cron" {
		t.Fatalf("LockKey = %q", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	t.Parallel()

	var client Client
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}
