package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Fetcher loads the catalog from the backend.
type Fetcher interface {
	ListCategories(ctx context.Context) ([]Category, error)
}

// Service serves snapshots, reading through an optional cache.
type Service struct {
	fetcher Fetcher
	cache   *Cache
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a Service. cache may be nil.
func NewService(fetcher Fetcher, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: fetcher, cache: cache, logger: logger, now: time.Now}
}

// Snapshot returns the cached snapshot when present, otherwise fetches one.
// Cache failures are logged and fall back to the backend.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s.cache != nil {
		snap, err := s.cache.Get(ctx)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", slog.String("error", err.Error()))
		}
	}
	return s.Reload(ctx)
}

// Reload fetches a fresh snapshot from the backend and updates the cache.
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	categories, err := s.fetcher.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	snap := NewSnapshot(categories, s.now())

	if s.cache != nil {
		if err := s.cache.Put(ctx, snap); err != nil {
			s.logger.Warn("catalog cache write failed", slog.String("error", err.Error()))
		}
	}
	s.logger.Debug("catalog loaded",
		slog.Int("categories", len(categories)),
		slog.Int("scraps", snap.Len()),
	)
	return snap, nil
}

// Invalidate drops the cached snapshot, if any.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}
