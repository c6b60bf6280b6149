package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

// Settings is the slice of configuration the services read.
type Settings interface {
	AdminIDs() []int64
	MaxMessageLength() int
	AutoDeleteDays() int
	AdminNotificationsEnabled() bool
}

// StatsCache stores computed statistics windows. GetWindow returns the cache
// version it looked under, which the caller hands back to SetWindow.
type StatsCache interface {
	GetWindow(ctx context.Context, days int) (*model.WindowStats, int64, bool, error)
	SetWindow(ctx context.Context, version int64, days int, stats *model.WindowStats) error
	Invalidate(ctx context.Context) error
}

// Deduper reports whether key is seen for the first time. Forget releases a
// key whose guarded action did not happen.
type Deduper interface {
	First(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type noopStatsCache struct{}

func (noopStatsCache) GetWindow(context.Context, int) (*model.WindowStats, int64, bool, error) {
	return nil, 0, false, nil
}
func (noopStatsCache) SetWindow(context.Context, int64, int, *model.WindowStats) error { return nil }
func (noopStatsCache) Invalidate(context.Context) error                                { return nil }

// memoryDeduper is the in-process fallback when no shared store is configured.
// Keys only live for the UTC day they were first seen on.
type memoryDeduper struct {
	mu    sync.Mutex
	clock func() time.Time
	day   string
	seen  map[string]struct{}
}

func newMemoryDeduper(clock func() time.Time) *memoryDeduper {
	return &memoryDeduper{clock: clock, seen: make(map[string]struct{})}
}

func (d *memoryDeduper) First(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if today := model.DayKey(d.clock()); today != d.day {
		d.day = today
		clear(d.seen)
	}
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = struct{}{}
	return true, nil
}

func (d *memoryDeduper) Forget(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
	return nil
}

type options struct {
	clock   func() time.Time
	log     *zap.Logger
	cache   StatsCache
	deduper Deduper
}

type Option func(*options)

// WithClock replaces time.Now. Returned times are always converted to UTC.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

func WithStatsCache(cache StatsCache) Option {
	return func(o *options) { o.cache = cache }
}

func WithDeduper(d Deduper) Option {
	return func(o *options) { o.deduper = d }
}

func buildOptions(opts []Option) options {
	o := options{
		clock:   time.Now,
		log:     zap.NewNop(),
		cache:   noopStatsCache{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.deduper == nil {
		o.deduper = newMemoryDeduper(o.now)
	}
	return o
}

func (o options) now() time.Time {
	return o.clock().UTC()
}
