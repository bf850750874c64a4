package tax

import (
	"context"
	"sync"
	"time"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
)

// CachedStore is a short-TTL read cache in front of a Store. Rate data
// changes rarely, so successful lookups are kept until the TTL expires
// or the admin write path calls Invalidate. Errors are never cached.
type CachedStore struct {
	inner Store
	ttl   time.Duration

	mu      sync.RWMutex
	classes map[string]classEntry
	rates   map[pgtype.UUID]ratesEntry
	rules   map[domain.EntityType]rulesEntry
}

type classEntry struct {
	class   domain.TaxClass
	expires time.Time
}

type ratesEntry struct {
	rates   []domain.TaxRate
	expires time.Time
}

type rulesEntry struct {
	rules   []RuleWithRate
	expires time.Time
}

// Compile-time check that CachedStore implements Store.
var _ Store = (*CachedStore)(nil)

// NewCachedStore wraps a store with a TTL cache.
func NewCachedStore(inner Store, ttl time.Duration) *CachedStore {
	c := &CachedStore{inner: inner, ttl: ttl}
	c.reset()
	return c
}

// Invalidate drops all cached entries. Called by the admin write path
// after any tax class, rate, or rule mutation.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *CachedStore) reset() {
	c.classes = make(map[string]classEntry)
	c.rates = make(map[pgtype.UUID]ratesEntry)
	c.rules = make(map[domain.EntityType]rulesEntry)
}

// GetTaxClassByCode returns the cached class or falls through to the store.
func (c *CachedStore) GetTaxClassByCode(ctx context.Context, code string) (*domain.TaxClass, error) {
	c.mu.RLock()
	entry, ok := c.classes[code]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		class := entry.class
		return &class, nil
	}

	class, err := c.inner.GetTaxClassByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.classes[code] = classEntry{class: *class, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return class, nil
}

// ListRatesForClass returns cached rates or falls through to the store.
func (c *CachedStore) ListRatesForClass(ctx context.Context, classID pgtype.UUID) ([]domain.TaxRate, error) {
	c.mu.RLock()
	entry, ok := c.rates[classID]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.rates, nil
	}

	rates, err := c.inner.ListRatesForClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rates[classID] = ratesEntry{rates: rates, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return rates, nil
}

// ListRulesForEntityType returns cached rules or falls through to the store.
func (c *CachedStore) ListRulesForEntityType(ctx context.Context, entityType domain.EntityType) ([]RuleWithRate, error) {
	c.mu.RLock()
	entry, ok := c.rules[entityType]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.rules, nil
	}

	rules, err := c.inner.ListRulesForEntityType(ctx, entityType)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rules[entityType] = rulesEntry{rules: rules, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return rules, nil
}
