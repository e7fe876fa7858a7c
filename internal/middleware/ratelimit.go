package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-reservation/internal/config"
)

// takeScript stores {t = tokens, at = last refill ms} per key. Tokens come
// back in whole refill steps; one is consumed per call when available.
// Returns {ok, left, wait_ms}.
var takeScript = redis.NewScript(`
local cap, step, every, now, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local t = tonumber(redis.call('HGET', KEYS[1], 't') or cap)
local at = tonumber(redis.call('HGET', KEYS[1], 'at') or now)
local n = math.floor(math.max(0, now - at) / every)
if n > 0 then
  t = math.min(cap, t + n * step)
  at = at + n * every
end
local ok, wait = 0, 0
if t >= 1 then
  ok, t = 1, t - 1
else
  wait = math.max(0, at + every - now)
end
redis.call('HSET', KEYS[1], 't', t, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, t, wait}
`)

// bucketDecision is the outcome of one take against a bucket.
type bucketDecision struct {
	Allowed   bool
	Remaining int64
	Wait      time.Duration
}

// takeFunc consumes one token from the bucket at key.
type takeFunc func(ctx context.Context, key string) (bucketDecision, error)

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewTokenBucket limits requests with a Redis-backed token bucket keyed by
// cfg.KeyStrategy. Without Redis, or when Redis errors, requests pass.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return tokenBucket(cfg, redisTaker(cfg, rdb), log)
}

func redisTaker(cfg config.RateLimitConfig, rdb redis.Scripter) takeFunc {
	return func(ctx context.Context, key string) (bucketDecision, error) {
		res, err := takeScript.Run(ctx, rdb, []string{key},
			cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(),
			time.Now().UnixMilli(), int64(cfg.TTL/time.Second),
		).Int64Slice()
		if err != nil {
			return bucketDecision{}, err
		}
		if len(res) != 3 {
			return bucketDecision{}, fmt.Errorf("ratelimit: script returned %d values", len(res))
		}
		return bucketDecision{
			Allowed:   res[0] == 1,
			Remaining: res[1],
			Wait:      time.Duration(res[2]) * time.Millisecond,
		}, nil
	}
}

func tokenBucket(cfg config.RateLimitConfig, take takeFunc, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	limit := strconv.Itoa(cfg.Capacity)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			d, err := take(c.Request().Context(), key)
			if err != nil {
				log.Warn("rate limiter unavailable, letting request through", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if d.Allowed {
				return next(c)
			}

			secs := retryAfterSeconds(d.Wait)
			h.Set("Retry-After", strconv.Itoa(secs))
			log.Debug("request throttled", zap.String("key", key), zap.Duration("wait", d.Wait))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// retryAfterSeconds rounds a wait up to whole seconds, never below zero.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// buildRateKey joins the identity parts named by KeyStrategy, e.g.
// "ip_user" gives "rl:ip=1.2.3.4:user=7".
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	parts := map[string]string{
		"ip":    ip,
		"user":  currentUserID(c),
		"route": c.Request().Method + " " + c.Path(),
	}

	strategy := strings.ToLower(cfg.KeyStrategy)
	switch strategy {
	case "ip", "user", "route", "ip_user", "ip_route", "user_route":
	default:
		strategy = "ip_user_route"
	}

	key := cfg.Prefix
	for _, name := range strings.Split(strategy, "_") {
		key += ":" + name + "=" + parts[name]
	}
	return key
}
