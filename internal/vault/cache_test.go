package vault

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

// fakeFetcher serves canned values and counts fetches per secret name.
type fakeFetcher struct {
	values map[string]string
	errs   map[string]error
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		values: make(map[string]string),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, name string) (string, error) {
	f.calls[name]++
	if err, ok := f.errs[name]; ok {
		return "", err
	}
	value, ok := f.values[name]
	if !ok {
		return "", fmt.Errorf("secret %s: %w", name, ErrSecretNotFound)
	}
	return value, nil
}

func TestCache_GetSecret_FetchesOnce(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.values["openai-mysql-root"] = "hunter2"
	cache := NewCache(fetcher, zerolog.Nop())

	for i := 0; i < 3; i++ {
		got, err := cache.GetSecret(context.Background(), "openai-mysql-root")
		if err != nil {
			t.Fatalf("GetSecret() error = %v", err)
		}
		if got != "hunter2" {
			t.Errorf("GetSecret() = %q, want %q", got, "hunter2")
		}
	}

	if fetcher.calls["openai-mysql-root"] != 1 {
		t.Errorf("fetch count = %d, want 1", fetcher.calls["openai-mysql-root"])
	}
}

func TestCache_GetSecret_NotFound(t *testing.T) {
	cache := NewCache(newFakeFetcher(), zerolog.Nop())

	_, err := cache.GetSecret(context.Background(), "missing")
	if !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("GetSecret() error = %v, want ErrSecretNotFound", err)
	}
}

func TestCache_GetSecret_ErrorNotCached(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.errs["flaky"] = errors.New("transient")
	cache := NewCache(fetcher, zerolog.Nop())

	if _, err := cache.GetSecret(context.Background(), "flaky"); err == nil {
		t.Fatal("GetSecret() expected error, got nil")
	}

	// Once the backing store recovers, the next get succeeds.
	delete(fetcher.errs, "flaky")
	fetcher.values["flaky"] = "recovered"

	got, err := cache.GetSecret(context.Background(), "flaky")
	if err != nil {
		t.Fatalf("GetSecret() after recovery error = %v", err)
	}
	if got != "recovered" {
		t.Errorf("GetSecret() = %q, want %q", got, "recovered")
	}
}

func TestCache_RefreshSecret_BypassesCache(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.values["rotating"] = "v1"
	cache := NewCache(fetcher, zerolog.Nop())

	if _, err := cache.GetSecret(context.Background(), "rotating"); err != nil {
		t.Fatalf("GetSecret() error = %v", err)
	}

	fetcher.values["rotating"] = "v2"

	got, err := cache.RefreshSecret(context.Background(), "rotating")
	if err != nil {
		t.Fatalf("RefreshSecret() error = %v", err)
	}
	if got != "v2" {
		t.Errorf("RefreshSecret() = %q, want %q", got, "v2")
	}

	// The refreshed value replaces the cached one.
	got, err = cache.GetSecret(context.Background(), "rotating")
	if err != nil {
		t.Fatalf("GetSecret() error = %v", err)
	}
	if got != "v2" {
		t.Errorf("GetSecret() after refresh = %q, want %q", got, "v2")
	}
}

func TestCache_RefreshSecret_FallsBackToCache(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.values["rotating"] = "v1"
	cache := NewCache(fetcher, zerolog.Nop())

	if _, err := cache.GetSecret(context.Background(), "rotating"); err != nil {
		t.Fatalf("GetSecret() error = %v", err)
	}

	fetcher.errs["rotating"] = errors.New("vault unreachable")

	got, err := cache.RefreshSecret(context.Background(), "rotating")
	if err != nil {
		t.Fatalf("RefreshSecret() error = %v, want cached fallback", err)
	}
	if got != "v1" {
		t.Errorf("RefreshSecret() fallback = %q, want %q", got, "v1")
	}
}

func TestCache_RefreshSecret_NoCacheNoFallback(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.errs["cold"] = errors.New("vault unreachable")
	cache := NewCache(fetcher, zerolog.Nop())

	if _, err := cache.RefreshSecret(context.Background(), "cold"); err == nil {
		t.Error("RefreshSecret() expected error with no cached value, got nil")
	}
}
