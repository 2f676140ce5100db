package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/venuebook/venuebook/libs/config"
	"github.com/venuebook/venuebook/libs/httpx"
	"github.com/venuebook/venuebook/libs/venuev1"
	"github.com/venuebook/venuebook/services/booking-service/internal/availability"
	"github.com/venuebook/venuebook/services/booking-service/internal/schedule"
)

type scheduleSource interface {
	availability.VenueStore
	availability.RuleStore
	availability.BlackoutStore
}

// newRedis returns nil when REDIS_ADDR is unset or unreachable; callers then
// run without the schedule cache and with a per-process rate limiter.
func newRedis(logger *slog.Logger) *redis.Client {
	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.Int("REDIS_DB", 0),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable; schedule cache disabled", "addr", addr, "err", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func newScheduleSource(logger *slog.Logger, api venuev1.VenueServiceClient, rdb *redis.Client) scheduleSource {
	client := schedule.NewClient(api, config.Duration("VENUE_GRPC_TIMEOUT", 3*time.Second))
	if rdb == nil {
		return client
	}
	return schedule.NewCache(client, schedule.NewRedisKV(rdb), config.Duration("SCHEDULE_CACHE_TTL", 5*time.Minute), logger)
}

func newRateLimit(logger *slog.Logger, rdb *redis.Client) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if limit <= 0 {
		return nil
	}
	if rdb != nil {
		return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "rl:availability", httpx.ClientIPKey).Middleware(logger, true)
	}
	return httpx.NewRateLimiter(limit, time.Minute, httpx.ClientIPKey).Middleware()
}
