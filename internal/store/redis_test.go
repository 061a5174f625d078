package store

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("newTestRedis: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, mr
}

func TestRedisGetSet(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	// Missing key is not an error.
	v, ok, err := r.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok || v != nil {
		t.Fatalf("expected missing key, got %q", v)
	}

	if err := r.Set(ctx, "k", []byte("one")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err = r.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || string(v) != "one" {
		t.Errorf("expected 'one', got %q (ok=%v)", v, ok)
	}

	// Overwrite.
	if err := r.Set(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if got, _ := mr.Get("k"); got != "two" {
		t.Errorf("expected 'two' on the server, got %q", got)
	}
	if ttl := mr.TTL("k"); ttl != 0 {
		t.Errorf("expected no expiry, got %v", ttl)
	}
}

func TestRedisAdapterRoundTrip(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	a := NewAdapter(r, "", nil)

	a.Save(ctx, sampleExams())
	if !mr.Exists(DefaultKey) {
		t.Fatalf("expected collection under %q", DefaultKey)
	}
	if got := a.Load(ctx); !reflect.DeepEqual(got, sampleExams()) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, sampleExams())
	}

	mr.FlushAll()
	if got := a.Load(ctx); got == nil || len(got) != 0 {
		t.Errorf("expected empty collection after flush, got %#v", got)
	}
}

func TestNewRedisBadURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "not-a-url"); err == nil {
		t.Fatal("expected error for malformed URL")
	}
}

func TestRedisUnreachableFailsSoft(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	a := NewAdapter(NewRedisFromClient(client), "", nil)
	t.Cleanup(func() { a.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if got := a.Load(ctx); len(got) != 0 {
		t.Errorf("expected empty collection, got %d exams", len(got))
	}
	// Must not panic or block.
	a.Save(ctx, sampleExams())
}
