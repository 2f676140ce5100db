package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/venuebook/venuebook/services/booking-service/internal/availability"
)

var ErrCacheMiss = errors.New("cache miss")

// KV is the subset of a key/value store the schedule cache needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type RedisKV struct {
	rdb *redis.Client
}

func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	return r.rdb.Del(ctx, keys...).Err()
}

type upstream interface {
	availability.VenueStore
	availability.RuleStore
	availability.BlackoutStore
}

// Cache is a read-through cache for venue settings and weekly rules.
// Blackouts are windowed queries and always go upstream. Cache failures
// degrade to upstream reads.
type Cache struct {
	next   upstream
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(next upstream, kv KV, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{next: next, kv: kv, ttl: ttl, logger: logger}
}

func venueKey(id string) string { return "schedule:venue:" + id }
func rulesKey(id string) string { return "schedule:rules:" + id }

func (c *Cache) GetVenue(ctx context.Context, venueID string) (availability.Venue, error) {
	var v availability.Venue
	if c.lookup(ctx, venueKey(venueID), &v) {
		return v, nil
	}
	v, err := c.next.GetVenue(ctx, venueID)
	if err != nil {
		return availability.Venue{}, err
	}
	c.store(ctx, venueKey(venueID), v)
	return v, nil
}

func (c *Cache) ListRules(ctx context.Context, venueID string) ([]availability.Rule, error) {
	var rules []availability.Rule
	if c.lookup(ctx, rulesKey(venueID), &rules) {
		return rules, nil
	}
	rules, err := c.next.ListRules(ctx, venueID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, rulesKey(venueID), rules)
	return rules, nil
}

func (c *Cache) ListBlackouts(ctx context.Context, venueID string, from, to time.Time) ([]availability.Blackout, error) {
	return c.next.ListBlackouts(ctx, venueID, from, to)
}

// Invalidate drops everything cached for the venue.
func (c *Cache) Invalidate(ctx context.Context, venueID string) error {
	return c.kv.Del(ctx, venueKey(venueID), rulesKey(venueID))
}

func (c *Cache) lookup(ctx context.Context, key string, dst any) bool {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("schedule cache read failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("schedule cache entry corrupt", "key", key, "err", err)
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.kv.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("schedule cache write failed", "key", key, "err", err)
	}
}
