package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/ksavin/snipurl/internal/app/model"
	"github.com/ksavin/snipurl/internal/app/repository"
	"github.com/ksavin/snipurl/internal/app/service"
)

type mockShortener struct {
	shortenFn func(ctx context.Context, store repository.LinkStore, originalURL string) (*service.ShortLink, error)
	statsFn   func(ctx context.Context, code string) (*service.ShortLink, error)
	listFn    func(ctx context.Context, store repository.LinkStore, limit int) ([]service.ShortLink, error)
}

func (m *mockShortener) Shorten(ctx context.Context, store repository.LinkStore, originalURL string) (*service.ShortLink, error) {
	if m.shortenFn != nil {
		return m.shortenFn(ctx, store, originalURL)
	}
	return nil, service.ErrInvalidURL
}

func (m *mockShortener) Stats(ctx context.Context, code string) (*service.ShortLink, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, code)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockShortener) ListOwned(ctx context.Context, store repository.LinkStore, limit int) ([]service.ShortLink, error) {
	if m.listFn != nil {
		return m.listFn(ctx, store, limit)
	}
	return nil, nil
}

func newAPIApp(svc service.Shortener) *fiber.App {
	app := fiber.New()
	h := NewAPIHandler(APIDeps{
		Shortener: svc,
		Scopes:    repository.NewScopeFactory(nil),
	})
	h.Register(app)
	return app
}

func TestAPIHandler_Shorten(t *testing.T) {
	svc := &mockShortener{
		shortenFn: func(ctx context.Context, store repository.LinkStore, originalURL string) (*service.ShortLink, error) {
			return &service.ShortLink{
				Link:     model.Link{Code: "abc123", OriginalURL: originalURL},
				ShortURL: "https://sn.ip/abc123",
			}, nil
		},
	}
	app := newAPIApp(svc)

	req := httptest.NewRequest(fiber.MethodPost, "/api/shorten",
		strings.NewReader(`{"original_url":"https://example.com/very/long/path"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var got ShortenResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if got.ShortCode != "abc123" || got.ShortURL != "https://sn.ip/abc123" {
		t.Fatalf("unexpected response %+v", got)
	}
	if got.OriginalURL != "https://example.com/very/long/path" {
		t.Fatalf("unexpected original url %q", got.OriginalURL)
	}
}

func TestAPIHandler_Shorten_InvalidURL(t *testing.T) {
	app := newAPIApp(&mockShortener{})

	req := httptest.NewRequest(fiber.MethodPost, "/api/shorten",
		strings.NewReader(`{"original_url":"ftp:/bad-uri"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAPIHandler_Stats_NotFound(t *testing.T) {
	app := newAPIApp(&mockShortener{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/stats/nosuch", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAPIHandler_Stats_StoreFailure(t *testing.T) {
	svc := &mockShortener{
		statsFn: func(ctx context.Context, code string) (*service.ShortLink, error) {
			return nil, errors.New("connection reset")
		},
	}
	app := newAPIApp(svc)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/stats/abc123", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("store failure must surface as 500, got %d", resp.StatusCode)
	}
}

func TestAPIHandler_ListURLs_Anonymous(t *testing.T) {
	svc := &mockShortener{
		listFn: func(ctx context.Context, store repository.LinkStore, limit int) ([]service.ShortLink, error) {
			// Anonymous scope lists nothing.
			links, err := store.List(ctx, limit)
			if err != nil {
				return nil, err
			}
			out := make([]service.ShortLink, len(links))
			for i := range links {
				out[i] = service.ShortLink{Link: links[i]}
			}
			return out, nil
		},
	}
	app := newAPIApp(svc)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/urls", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var got struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if got.Count != 0 {
		t.Fatalf("expected empty list for anonymous caller, got count %d", got.Count)
	}
}
