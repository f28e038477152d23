package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/internal/observability"
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores serialized provider responses.
type Cache interface {
	// Get returns the value for key, or false when it is missing or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !item.expiresAt.IsZero() && !c.now().Before(item.expiresAt) {
		delete(c.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), item.value...), true, nil
}

// Set implements Cache. A non-positive ttl never expires.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}
	c.items[key] = item
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to the Redis server at addr.
func NewRedisCache(addr, password string, db int) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisCacheFromClient(rdb, constants.MetricsNamespace+":")
}

// NewRedisCacheFromClient wraps an existing client. Keys are stored under prefix.
func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// CachingProvider consults a Cache before delegating to another Provider.
// Cache failures are logged and never fail a lookup.
type CachingProvider struct {
	logger  *zap.Logger
	next    Provider
	cache   Cache
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachingProvider wraps next with cache. A non-positive ttl uses the
// default of 24 hours.
func NewCachingProvider(logger *zap.Logger, next Provider, cache Cache, ttl time.Duration, metrics *observability.Metrics) *CachingProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTLSeconds * time.Second
	}
	return &CachingProvider{
		logger:  logger,
		next:    next,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
	}
}

// CostOfLiving implements Provider.
func (p *CachingProvider) CostOfLiving(ctx context.Context, city string) (map[string]float64, error) {
	var out map[string]float64
	err := p.cached(ctx, "cost_of_living", "col_"+normalize(city), &out, func() (interface{}, error) {
		return p.next.CostOfLiving(ctx, city)
	})
	return out, err
}

// TaxRates implements Provider.
func (p *CachingProvider) TaxRates(ctx context.Context, city string) (map[string]float64, error) {
	var out map[string]float64
	err := p.cached(ctx, "tax_rates", "tax_"+normalize(city), &out, func() (interface{}, error) {
		return p.next.TaxRates(ctx, city)
	})
	return out, err
}

type cachedReturns struct {
	Found   bool                  `json:"found"`
	Returns decision.MarketReturn `json:"returns"`
}

// MarketReturns implements Provider. Misses are cached too.
func (p *CachingProvider) MarketReturns(ctx context.Context, option string) (decision.MarketReturn, bool, error) {
	var out cachedReturns
	err := p.cached(ctx, "market_returns", "fin_"+normalize(option), &out, func() (interface{}, error) {
		r, ok, err := p.next.MarketReturns(ctx, option)
		return cachedReturns{Found: ok, Returns: r}, err
	})
	return out.Returns, out.Found, err
}

func (p *CachingProvider) cached(ctx context.Context, dataset, key string, dst interface{}, fetch func() (interface{}, error)) error {
	raw, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.metrics.CacheError("get")
		p.logger.Warn("failed to read external data cache",
			zap.String("op", "marketdata.CachingProvider"),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	if ok {
		if err := json.Unmarshal(raw, dst); err == nil {
			p.metrics.CacheLookup(dataset, true)
			return nil
		}
		p.logger.Warn("discarding undecodable cache entry",
			zap.String("op", "marketdata.CachingProvider"),
			zap.String("key", key),
		)
	}
	p.metrics.CacheLookup(dataset, false)

	value, err := fetch()
	if err != nil {
		return err
	}
	raw, err = json.Marshal(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	if err := p.cache.Set(ctx, key, raw, p.ttl); err != nil {
		p.metrics.CacheError("set")
		p.logger.Warn("failed to write external data cache",
			zap.String("op", "marketdata.CachingProvider"),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return nil
}
