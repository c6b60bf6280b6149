package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Gopher0727/FeedbackBot/config"
)

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	// Allow consumes one token and reports whether key is still within limit.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// AllowN consumes n tokens at once.
	AllowN(ctx context.Context, key string, n int, limit int, window time.Duration) (bool, error)

	// Reset clears the current and previous window of key.
	Reset(ctx context.Context, key string, window time.Duration) error

	// Remaining returns how many tokens are left in the current window.
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// WindowLimiter keeps one Redis counter per key and window bucket, so every
// instance of the service shares the same budget.
type WindowLimiter struct {
	redisClient *redis.Client
	logger      *zap.Logger
	failOpen    bool
	now         func() time.Time
}

type Option func(*WindowLimiter)

// WithClock replaces time.Now when computing window buckets.
func WithClock(now func() time.Time) Option {
	return func(l *WindowLimiter) { l.now = now }
}

// NewWindowLimiter creates a limiter over redisClient. With failOpen set,
// requests are allowed while Redis is unreachable.
func NewWindowLimiter(redisClient *redis.Client, logger *zap.Logger, failOpen bool, opts ...Option) *WindowLimiter {
	l := &WindowLimiter{
		redisClient: redisClient,
		logger:      logger,
		failOpen:    failOpen,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *WindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return l.AllowN(ctx, key, 1, limit, window)
}

// AllowN increments the bucket counter by n and sets its expiry in one
// pipeline. A non-positive limit disables limiting for the call.
func (l *WindowLimiter) AllowN(ctx context.Context, key string, n int, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	bucketKey := bucketKey(key, l.now(), window)

	pipe := l.redisClient.Pipeline()
	incrCmd := pipe.IncrBy(ctx, bucketKey, int64(n))
	pipe.Expire(ctx, bucketKey, window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		if l.failOpen {
			l.logger.Warn("rate limit check failed, allowing request",
				zap.String("key", key),
				zap.Error(err),
			)
			return true, nil
		}
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := incrCmd.Val()
	allowed := count <= int64(limit)
	if !allowed {
		l.logger.Warn("rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Int("limit", limit),
			zap.Duration("window", window),
		)
	}
	return allowed, nil
}

func (l *WindowLimiter) Reset(ctx context.Context, key string, window time.Duration) error {
	now := l.now()
	keys := []string{bucketKey(key, now, window), bucketKey(key, now.Add(-window), window)}
	if err := l.redisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit for key %s: %w", key, err)
	}
	return nil
}

func (l *WindowLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	count, err := l.redisClient.Get(ctx, bucketKey(key, l.now(), window)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return limit, nil
		}
		return 0, fmt.Errorf("failed to get remaining tokens: %w", err)
	}
	return max(limit-int(count), 0), nil
}

// bucketKey names the counter of the window containing now.
func bucketKey(key string, now time.Time, window time.Duration) string {
	size := int64(window / time.Second)
	if size <= 0 {
		size = 1
	}
	return fmt.Sprintf("ratelimit:%s:%d", key, now.Unix()/size)
}

// Rule is one budget.
type Rule struct {
	Limit  int
	Window time.Duration
}

const (
	EndpointAPI  = "api"
	EndpointAuth = "auth"
)

// RuleFor maps an endpoint class to its configured per-minute budget.
func RuleFor(endpoint string, cfg *config.RateLimitConfig) Rule {
	switch endpoint {
	case EndpointAuth:
		return Rule{Limit: cfg.AuthPerMinute, Window: time.Minute}
	case EndpointAPI:
		return Rule{Limit: cfg.APIPerMinute, Window: time.Minute}
	}
	return Rule{Limit: 100, Window: time.Minute}
}
