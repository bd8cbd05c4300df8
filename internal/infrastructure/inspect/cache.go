package inspect

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"MarketSniper/internal/domain"
	"MarketSniper/internal/ports"
)

// CachedInspector remembers successful inspections. An asset's float never changes,
// so listings seen on every poll are inspected once per TTL.
type CachedInspector struct {
	next  ports.Inspector
	cache *ristretto.Cache[string, domain.InspectionResult]
	ttl   time.Duration
}

var _ ports.Inspector = (*CachedInspector)(nil)

// NewCachedInspector wraps next with a ristretto cache holding up to maxItems results.
func NewCachedInspector(next ports.Inspector, maxItems int64, ttl time.Duration) (*CachedInspector, error) {
	if maxItems <= 0 {
		maxItems = 1 << 16
	}
	// Cost counts results, not bytes.
	cache, err := ristretto.NewCache(&ristretto.Config[string, domain.InspectionResult]{
		NumCounters:        maxItems * 10,
		MaxCost:            maxItems,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create inspection cache: %w", err)
	}
	return &CachedInspector{next: next, cache: cache, ttl: ttl}, nil
}

// Inspect answers cached targets locally and forwards the rest in one batch.
func (c *CachedInspector) Inspect(ctx context.Context, targets []domain.InspectTarget) ([]domain.InspectionResult, error) {
	results := make([]domain.InspectionResult, 0, len(targets))
	misses := make([]domain.InspectTarget, 0, len(targets))

	for _, target := range targets {
		if cached, ok := c.cache.Get(target.Key()); ok {
			results = append(results, cached)
			continue
		}
		misses = append(misses, target)
	}

	if len(misses) == 0 {
		return results, nil
	}

	fresh, err := c.next.Inspect(ctx, misses)
	if err != nil {
		return nil, err
	}

	for _, result := range fresh {
		if !result.Failed() {
			c.cache.SetWithTTL(result.Key(), result, 1, c.ttl)
		}
	}
	c.cache.Wait()

	return append(results, fresh...), nil
}

// Close releases the cache goroutines.
func (c *CachedInspector) Close() {
	c.cache.Close()
}
