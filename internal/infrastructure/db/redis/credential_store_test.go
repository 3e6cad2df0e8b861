package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/brewline/console/internal/core/domain"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestCredentialStore_RoundTrip(t *testing.T) {
	mr, rdb := newMiniredis(t)
	s := NewCredentialStore(rdb, "work")
	ctx := context.Background()

	if _, err := s.Load(ctx); !errors.Is(err, domain.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}

	if err := s.Save(ctx, "a.b.c"); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if got, err := s.Load(ctx); err != nil || got != "a.b.c" {
		t.Fatalf("expected a.b.c, got %q (%v)", got, err)
	}
	if ttl := mr.TTL("console:credential:work"); ttl != 7*24*time.Hour {
		t.Fatalf("expected 7 day ttl, got %v", ttl)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second Clear error: %v", err)
	}
	if mr.Exists("console:credential:work") {
		t.Fatalf("key should be gone")
	}
}

func TestCredentialStore_Expires(t *testing.T) {
	mr, rdb := newMiniredis(t)
	s := NewCredentialStore(rdb, "")
	ctx := context.Background()

	if err := s.Save(ctx, "a.b.c"); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	mr.FastForward(7*24*time.Hour + time.Second)

	if _, err := s.Load(ctx); !errors.Is(err, domain.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential after expiry, got %v", err)
	}
}

func TestCredentialStore_ProfilesAreIsolated(t *testing.T) {
	_, rdb := newMiniredis(t)
	ctx := context.Background()
	a := NewCredentialStore(rdb, "a")
	b := NewCredentialStore(rdb, "b")

	_ = a.Save(ctx, "token-a")
	if _, err := b.Load(ctx); !errors.Is(err, domain.ErrNoCredential) {
		t.Fatalf("profile b must not see profile a, got %v", err)
	}
}

func TestCredentialStore_Unreachable(t *testing.T) {
	mr, rdb := newMiniredis(t)
	mr.Close()

	s := NewCredentialStore(rdb, "x")
	_, err := s.Load(context.Background())
	if err == nil || errors.Is(err, domain.ErrNoCredential) {
		t.Fatalf("expected a transport error, got %v", err)
	}
}
