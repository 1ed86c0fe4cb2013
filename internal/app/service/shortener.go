package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ksavin/snipurl/internal/app/model"
	"github.com/ksavin/snipurl/internal/app/repository"
	infraprom "github.com/ksavin/snipurl/internal/infra/prometheus"
)

var (
	// ErrInvalidURL signals a malformed or non-absolute original URL.
	ErrInvalidURL = errors.New("invalid original url")
	// ErrCodeSpaceExhausted signals that code allocation retries ran out.
	ErrCodeSpaceExhausted = errors.New("unable to allocate short code")
)

const defaultMaxCodeRetries = 5

// ShortLink is a stored link together with its composed public short URL.
type ShortLink struct {
	model.Link
	ShortURL string
}

// CodeObserver is notified of every newly allocated code so read-path
// structures (the resolver's negative-lookup filter) admit it immediately.
type CodeObserver interface {
	Observe(code string)
}

// Shortener defines behaviour-level operations on short links. Mutating
// operations take the caller's scoped store explicitly so ownership is never
// ambient state.
type Shortener interface {
	Shorten(ctx context.Context, store repository.LinkStore, originalURL string) (*ShortLink, error)
	Stats(ctx context.Context, code string) (*ShortLink, error)
	ListOwned(ctx context.Context, store repository.LinkStore, limit int) ([]ShortLink, error)
}

type shortener struct {
	gen        *CodeGenerator
	reader     repository.LinkStore
	observer   CodeObserver
	baseURL    string
	maxRetries int
	metrics    *infraprom.Metrics
}

// NewShortener returns a shortening service. The reader store backs the
// unscoped read paths (stats); per-request scoped stores are passed into each
// mutating call. A nil observer is allowed.
func NewShortener(gen *CodeGenerator, reader repository.LinkStore, observer CodeObserver, baseURL string, maxRetries int, metrics *infraprom.Metrics) Shortener {
	if maxRetries <= 0 {
		maxRetries = defaultMaxCodeRetries
	}
	if metrics == nil {
		metrics = infraprom.NopMetrics()
	}
	return &shortener{
		gen:        gen,
		reader:     reader,
		observer:   observer,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: maxRetries,
		metrics:    metrics,
	}
}

// Shorten validates the original URL, allocates a unique code and persists
// the record. Uniqueness violations trigger regeneration with a fresh code,
// bounded by the retry budget.
func (s *shortener) Shorten(ctx context.Context, store repository.LinkStore, originalURL string) (*ShortLink, error) {
	if err := validateOriginalURL(originalURL); err != nil {
		return nil, err
	}

	for range s.maxRetries {
		code, err := s.gen.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}

		link := &model.Link{
			Code:        code,
			OriginalURL: originalURL,
		}
		if err := store.Create(ctx, link); err != nil {
			if errors.Is(err, repository.ErrCodeTaken) {
				continue
			}
			return nil, fmt.Errorf("create link: %w", err)
		}

		if s.observer != nil {
			s.observer.Observe(link.Code)
		}
		s.metrics.LinksCreated.Inc()
		return s.withShortURL(link), nil
	}

	return nil, ErrCodeSpaceExhausted
}

// Stats returns the stored record for a code without mutating it.
func (s *shortener) Stats(ctx context.Context, code string) (*ShortLink, error) {
	link, err := s.reader.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return s.withShortURL(link), nil
}

// ListOwned returns the scope's records, newest first.
func (s *shortener) ListOwned(ctx context.Context, store repository.LinkStore, limit int) ([]ShortLink, error) {
	links, err := store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	result := make([]ShortLink, len(links))
	for i := range links {
		result[i] = *s.withShortURL(&links[i])
	}
	return result, nil
}

func (s *shortener) withShortURL(link *model.Link) *ShortLink {
	return &ShortLink{
		Link:     *link,
		ShortURL: s.baseURL + "/" + link.Code,
	}
}

func validateOriginalURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
