package service

import (
	"context"
	"time"

	"github.com/ksavin/snipurl/internal/app/repository"
	"go.uber.org/zap"
)

// FilterRefresher periodically rebuilds the resolver's negative-lookup filter
// from the store so codes created by other instances stop being rejected.
type FilterRefresher struct {
	logger   *zap.Logger
	store    repository.LinkStore
	resolver *Resolver
	interval time.Duration
	stopChan chan struct{}
}

// NewFilterRefresher creates a refresher that rebuilds the filter at the
// given interval (default 5 minutes).
func NewFilterRefresher(logger *zap.Logger, store repository.LinkStore, resolver *Resolver, interval time.Duration) *FilterRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &FilterRefresher{
		logger:   logger,
		store:    store,
		resolver: resolver,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic rebuild.
func (r *FilterRefresher) Start() {
	go r.run()
}

// Stop stops the periodic rebuild.
func (r *FilterRefresher) Stop() {
	close(r.stopChan)
}

func (r *FilterRefresher) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.refresh()
		case <-r.stopChan:
			r.logger.Info("filter refresher stopped")
			return
		}
	}
}

func (r *FilterRefresher) refresh() {
	ctx := context.Background()

	codes, err := r.store.Codes(ctx)
	if err != nil {
		r.logger.Error("failed to load codes for filter rebuild", zap.Error(err))
		return
	}

	r.resolver.ReplaceFilter(NewCodeFilter(codes))
	r.logger.Debug("negative-lookup filter rebuilt", zap.Int("codes", len(codes)))
}
