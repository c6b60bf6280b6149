package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

// StatsCache keeps computed statistics windows. Invalidate bumps a version
// counter so every cached window is orphaned at once and expires by TTL.
// GetWindow reports the version it read; SetWindow writes under that version
// so a result computed before an Invalidate is never served after it.
type StatsCache struct {
	client *Client
	ttl    time.Duration
}

func NewStatsCache(client *Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StatsCache{client: client, ttl: ttl}
}

func (s *StatsCache) version(ctx context.Context) (int64, error) {
	v, err := s.client.client.Get(ctx, statsVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stats version: %w", err)
	}
	return v, nil
}

func (s *StatsCache) GetWindow(ctx context.Context, days int) (*model.WindowStats, int64, bool, error) {
	v, err := s.version(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	var stats model.WindowStats
	err = s.client.GetJSON(ctx, statsWindowKey(v, days), &stats)
	if errors.Is(err, ErrCacheMiss) {
		return nil, v, false, nil
	}
	if err != nil {
		return nil, v, false, err
	}
	return &stats, v, true, nil
}

func (s *StatsCache) SetWindow(ctx context.Context, version int64, days int, stats *model.WindowStats) error {
	return s.client.SetJSON(ctx, statsWindowKey(version, days), stats, s.ttl)
}

func (s *StatsCache) Invalidate(ctx context.Context) error {
	_, err := s.client.Incr(ctx, statsVersionKey)
	return err
}

// Deduper reports whether a key is seen for the first time within ttl.
type Deduper struct {
	client *Client
	ttl    time.Duration
}

func NewDeduper(client *Client, ttl time.Duration) *Deduper {
	return &Deduper{client: client, ttl: ttl}
}

func (d *Deduper) First(ctx context.Context, key string) (bool, error) {
	return d.client.MarkOnce(ctx, key, d.ttl)
}

func (d *Deduper) Forget(ctx context.Context, key string) error {
	return d.client.Del(ctx, key)
}
