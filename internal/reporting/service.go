package reporting

import (
	"context"
	"time"
)

// RepositoryPort describes the read operations used by Service.
type RepositoryPort interface {
	ListEntries(ctx context.Context, from, to time.Time) ([]DocumentEntry, error)
}

// Service computes time-bucketed totals for the display layer. The rollup is
// a read-only projection; the cache only shortcuts recomputation.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService constructs the reporting service.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// RollupFilter bounds the aggregation window. Zero values span everything.
type RollupFilter struct {
	From time.Time
	To   time.Time
}

func (f RollupFilter) normalised() RollupFilter {
	if f.From.IsZero() {
		f.From = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if f.To.IsZero() {
		f.To = time.Now().AddDate(1, 0, 0)
	}
	return f
}

// GetMonthlyRollup returns one bucket per calendar month in the window,
// chronologically ordered.
func (s *Service) GetMonthlyRollup(ctx context.Context, filter RollupFilter) ([]PeriodBucket, error) {
	filter = filter.normalised()

	loader := func(ctx context.Context) (interface{}, error) {
		entries, err := s.repo.ListEntries(ctx, filter.From, filter.To)
		if err != nil {
			return nil, err
		}
		return MonthlyRollup(entries), nil
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		return value.([]PeriodBucket), nil
	}

	keyBase := keyRollup(filter.From.Format("2006-01-02"), filter.To.Format("2006-01-02"))
	key, err := s.cache.BuildKey(ctx, keyBase)
	if err != nil {
		return nil, err
	}
	var buckets []PeriodBucket
	if err := s.cache.FetchJSON(ctx, key, &buckets, loader); err != nil {
		return nil, err
	}
	return buckets, nil
}

// Invalidate drops cached rollups after a mutation elsewhere.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
