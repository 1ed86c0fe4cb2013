package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ksavin/snipurl/internal/app/model"
	"github.com/ksavin/snipurl/internal/app/repository"
)

type mockLinkCache struct {
	getFn func(ctx context.Context, code string) (*model.Link, bool)
	setFn func(ctx context.Context, link *model.Link)
}

func (m *mockLinkCache) Get(ctx context.Context, code string) (*model.Link, bool) {
	if m.getFn != nil {
		return m.getFn(ctx, code)
	}
	return nil, false
}

func (m *mockLinkCache) Set(ctx context.Context, link *model.Link) {
	if m.setFn != nil {
		m.setFn(ctx, link)
	}
}

func TestResolver_Resolve(t *testing.T) {
	store := &mockLinkStore{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			return &model.Link{Code: code, OriginalURL: "https://example.com", Clicks: 7}, nil
		},
	}
	resolver := NewResolver(store, ResolverOptions{})

	// Resolution is idempotent: repeated lookups return the same target.
	for range 3 {
		link, err := resolver.Resolve(context.Background(), "abc123")
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if link.OriginalURL != "https://example.com" {
			t.Fatalf("unexpected target %q", link.OriginalURL)
		}
		if link.Clicks != 7 {
			t.Fatalf("expected clicks snapshot 7, got %d", link.Clicks)
		}
	}
}

func TestResolver_Resolve_NotFound(t *testing.T) {
	resolver := NewResolver(&mockLinkStore{}, ResolverOptions{})

	_, err := resolver.Resolve(context.Background(), "nosuch")
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestResolver_Resolve_FailsClosed(t *testing.T) {
	store := &mockLinkStore{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			return nil, errors.New("connection reset")
		},
	}
	resolver := NewResolver(store, ResolverOptions{})

	link, err := resolver.Resolve(context.Background(), "abc123")
	if err == nil {
		t.Fatal("expected store failure to surface as an error")
	}
	if link != nil {
		t.Fatal("no redirect target may be returned on store failure")
	}
}

func TestResolver_Resolve_CacheHit(t *testing.T) {
	store := &mockLinkStore{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			t.Fatal("store must not be queried on a cache hit")
			return nil, nil
		},
	}
	cache := &mockLinkCache{
		getFn: func(ctx context.Context, code string) (*model.Link, bool) {
			return &model.Link{Code: code, OriginalURL: "https://cached.example.com"}, true
		},
	}
	resolver := NewResolver(store, ResolverOptions{Cache: cache})

	link, err := resolver.Resolve(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if link.OriginalURL != "https://cached.example.com" {
		t.Fatalf("unexpected target %q", link.OriginalURL)
	}
}

func TestResolver_Resolve_CacheMissFillsCache(t *testing.T) {
	store := &mockLinkStore{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			return &model.Link{Code: code, OriginalURL: "https://example.com"}, nil
		},
	}
	var cached *model.Link
	cache := &mockLinkCache{
		setFn: func(ctx context.Context, link *model.Link) {
			cached = link
		},
	}
	resolver := NewResolver(store, ResolverOptions{Cache: cache})

	if _, err := resolver.Resolve(context.Background(), "abc123"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cached == nil || cached.Code != "abc123" {
		t.Fatal("expected resolved link to be written to the cache")
	}
}

func TestResolver_FilterRejectsUnknownCodes(t *testing.T) {
	store := &mockLinkStore{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			t.Fatal("store must not be queried for filtered codes")
			return nil, nil
		},
	}
	resolver := NewResolver(store, ResolverOptions{
		Filter: NewCodeFilter([]string{"known1"}),
	})

	_, err := resolver.Resolve(context.Background(), "nosuch")
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestResolver_ObserveAdmitsNewCodes(t *testing.T) {
	store := &mockLinkStore{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			return &model.Link{Code: code, OriginalURL: "https://example.com"}, nil
		},
	}
	resolver := NewResolver(store, ResolverOptions{
		Filter: NewCodeFilter(nil),
	})

	if _, err := resolver.Resolve(context.Background(), "fresh1"); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected unwarmed code to be rejected, got %v", err)
	}

	resolver.Observe("fresh1")

	link, err := resolver.Resolve(context.Background(), "fresh1")
	if err != nil {
		t.Fatalf("Resolve returned error after Observe: %v", err)
	}
	if link.Code != "fresh1" {
		t.Fatalf("unexpected link %q", link.Code)
	}
}

func TestResolver_ReplaceFilter(t *testing.T) {
	store := &mockLinkStore{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			return &model.Link{Code: code, OriginalURL: "https://example.com"}, nil
		},
	}
	resolver := NewResolver(store, ResolverOptions{
		Filter: NewCodeFilter(nil),
	})

	resolver.ReplaceFilter(NewCodeFilter([]string{"later1"}))

	if _, err := resolver.Resolve(context.Background(), "later1"); err != nil {
		t.Fatalf("expected code from replaced filter to resolve, got %v", err)
	}
}
