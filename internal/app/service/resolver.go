package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/ksavin/snipurl/internal/app/model"
	"github.com/ksavin/snipurl/internal/app/repository"
	infraprom "github.com/ksavin/snipurl/internal/infra/prometheus"
	"go.uber.org/zap"
)

const (
	defaultResolveTimeout = 5 * time.Second
	minFilterCapacity     = 10000
	filterFalsePositive   = 0.001
)

// LinkCache is the read-through cache in front of the store. Misses and cache
// backend failures are equivalent; the cache never fails a resolution.
type LinkCache interface {
	Get(ctx context.Context, code string) (*model.Link, bool)
	Set(ctx context.Context, link *model.Link)
}

// Resolver translates a short code into its stored record with minimal
// latency: a negative-lookup filter rejects codes that were never issued, a
// cache serves hot codes, and only then does the store get a round trip.
// Store failures surface as not-found so the redirect path fails closed.
type Resolver struct {
	store   repository.LinkStore
	cache   LinkCache
	timeout time.Duration
	metrics *infraprom.Metrics
	logger  *zap.Logger

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// ResolverOptions bundles the optional collaborators of a Resolver.
type ResolverOptions struct {
	Cache   LinkCache
	Filter  *bloom.BloomFilter
	Timeout time.Duration
	Metrics *infraprom.Metrics
	Logger  *zap.Logger
}

// NewResolver returns a resolver over the given store.
func NewResolver(store repository.LinkStore, opts ResolverOptions) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultResolveTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = infraprom.NopMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Resolver{
		store:   store,
		cache:   opts.Cache,
		timeout: opts.Timeout,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		filter:  opts.Filter,
	}
}

// NewCodeFilter builds a bloom filter sized for the given code corpus.
func NewCodeFilter(codes []string) *bloom.BloomFilter {
	capacity := uint(len(codes)) * 2
	if capacity < minFilterCapacity {
		capacity = minFilterCapacity
	}

	filter := bloom.NewWithEstimates(capacity, filterFalsePositive)
	for _, code := range codes {
		filter.AddString(code)
	}
	return filter
}

// Resolve looks up the record for a code. It returns
// repository.ErrLinkNotFound for unknown codes and wraps store failures so
// callers treat them as unresolved rather than redirecting blind.
func (r *Resolver) Resolve(ctx context.Context, code string) (*model.Link, error) {
	if !r.mightExist(code) {
		r.metrics.FilterRejects.Inc()
		return nil, repository.ErrLinkNotFound
	}

	if r.cache != nil {
		if link, ok := r.cache.Get(ctx, code); ok {
			r.metrics.CacheHits.Inc()
			return link, nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	link, err := r.store.GetByCode(lookupCtx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, err
		}
		r.logger.Warn("link lookup failed", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("resolve %q: %w", code, err)
	}

	if r.cache != nil {
		r.cache.Set(ctx, link)
	}
	r.Observe(link.Code)

	return link, nil
}

// Observe marks a code as issued so the negative-lookup filter admits it.
// Called on create and on store hits; the filter never needs removal because
// records are not deleted within this core.
func (r *Resolver) Observe(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filter != nil {
		r.filter.AddString(code)
	}
}

// ReplaceFilter swaps in a freshly built filter, typically from the
// background refresher, so codes created by other instances become visible.
func (r *Resolver) ReplaceFilter(filter *bloom.BloomFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter = filter
}

func (r *Resolver) mightExist(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.filter == nil {
		return true
	}
	return r.filter.TestString(code)
}
