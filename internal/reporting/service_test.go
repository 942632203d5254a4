package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryEntriesRepo struct {
	entries []DocumentEntry
	calls   int
}

func (r *memoryEntriesRepo) ListEntries(ctx context.Context, from, to time.Time) ([]DocumentEntry, error) {
	r.calls++
	var filtered []DocumentEntry
	for _, entry := range r.entries {
		if entry.EffectiveAt.Before(from) || entry.EffectiveAt.After(to) {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered, nil
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func sampleEntries() []DocumentEntry {
	return []DocumentEntry{
		{Kind: EntrySale, EffectiveAt: date(2026, 1, 5), Amount: 12500},
		{Kind: EntrySale, EffectiveAt: date(2026, 1, 20), Amount: 8300.50},
		{Kind: EntryPurchase, EffectiveAt: date(2026, 1, 12), Amount: 5400},
		{Kind: EntryPayroll, EffectiveAt: date(2026, 1, 31), Amount: 38000},
		{Kind: EntrySale, EffectiveAt: date(2026, 2, 3), Amount: 1999.99},
		{Kind: EntryPayroll, EffectiveAt: date(2026, 2, 28), Amount: 38000},
		{Kind: EntryPurchase, EffectiveAt: date(2026, 3, 15), Amount: 900},
	}
}

func TestMonthlyRollupBucketsByMonth(t *testing.T) {
	buckets := MonthlyRollup(sampleEntries())
	require.Len(t, buckets, 3)

	require.Equal(t, "2026-01", buckets[0].Period)
	require.InDelta(t, 20800.50, buckets[0].Inflows, 1e-9)
	require.InDelta(t, 43400.0, buckets[0].Outflows, 1e-9)

	require.Equal(t, "2026-02", buckets[1].Period)
	require.InDelta(t, 1999.99, buckets[1].Inflows, 1e-9)
	require.InDelta(t, 38000.0, buckets[1].Outflows, 1e-9)

	require.Equal(t, "2026-03", buckets[2].Period)
	require.Equal(t, 0.0, buckets[2].Inflows)
	require.Equal(t, 900.0, buckets[2].Outflows)
}

func TestMonthlyRollupEmptyInput(t *testing.T) {
	require.Empty(t, MonthlyRollup(nil))
}

func TestMonthlyRollupIsDeterministic(t *testing.T) {
	first := MonthlyRollup(sampleEntries())
	second := MonthlyRollup(sampleEntries())
	require.Equal(t, first, second)
}

func TestGetMonthlyRollupWithoutCache(t *testing.T) {
	ctx := context.Background()
	repo := &memoryEntriesRepo{entries: sampleEntries()}
	svc := NewService(repo, nil)

	buckets, err := svc.GetMonthlyRollup(ctx, RollupFilter{})
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	require.Equal(t, 1, repo.calls)
}

func TestGetMonthlyRollupWindowFilter(t *testing.T) {
	ctx := context.Background()
	repo := &memoryEntriesRepo{entries: sampleEntries()}
	svc := NewService(repo, nil)

	buckets, err := svc.GetMonthlyRollup(ctx, RollupFilter{
		From: date(2026, 2, 1),
		To:   date(2026, 2, 28),
	})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, "2026-02", buckets[0].Period)
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestGetMonthlyRollupCachesResult(t *testing.T) {
	ctx := context.Background()
	repo := &memoryEntriesRepo{entries: sampleEntries()}
	svc := NewService(repo, newTestCache(t))

	filter := RollupFilter{From: date(2026, 1, 1), To: date(2026, 12, 31)}

	first, err := svc.GetMonthlyRollup(ctx, filter)
	require.NoError(t, err)
	second, err := svc.GetMonthlyRollup(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.calls)
}

func TestInvalidateForcesRecomputation(t *testing.T) {
	ctx := context.Background()
	repo := &memoryEntriesRepo{entries: sampleEntries()}
	svc := NewService(repo, newTestCache(t))

	filter := RollupFilter{From: date(2026, 1, 1), To: date(2026, 12, 31)}

	_, err := svc.GetMonthlyRollup(ctx, filter)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx))

	repo.entries = append(repo.entries, DocumentEntry{
		Kind: EntrySale, EffectiveAt: date(2026, 4, 1), Amount: 500,
	})
	buckets, err := svc.GetMonthlyRollup(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
	require.Equal(t, "2026-04", buckets[len(buckets)-1].Period)
}
