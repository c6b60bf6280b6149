package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/internal/model"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
)

type IStatsService interface {
	// Recompute rewrites the statistic row of the UTC day containing day.
	Recompute(ctx context.Context, day time.Time) error
	// RecomputeTx is Recompute against a store already bound to a transaction.
	// Store errors are returned unwrapped.
	RecomputeTx(ctx context.Context, store *repository.Store, day time.Time) error
	WindowStats(ctx context.Context, days int) (*model.WindowStats, error)
	Snapshot(ctx context.Context, day time.Time) (*model.Statistic, error)
	Invalidate(ctx context.Context)
}

type StatsService struct {
	store *repository.Store
	opts  options
}

func NewStatsService(store *repository.Store, opts ...Option) IStatsService {
	return &StatsService{store: store, opts: buildOptions(opts)}
}

func (s *StatsService) Recompute(ctx context.Context, day time.Time) error {
	if err := s.RecomputeTx(ctx, s.store, day); err != nil {
		return persistErr(ctx, s.opts.log, "recompute statistics", err, zap.String("day", model.DayKey(day)))
	}
	s.Invalidate(ctx)
	return nil
}

func (s *StatsService) RecomputeTx(ctx context.Context, store *repository.Store, day time.Time) error {
	start := model.DayStart(day)
	counts, err := store.Messages.CountBetween(ctx, start, start.Add(24*time.Hour))
	if err != nil {
		return err
	}
	return store.Statistics.Upsert(ctx, &model.Statistic{
		Date:            model.DayKey(start),
		TotalMessages:   counts.Total,
		NewMessages:     counts.New,
		RepliedMessages: counts.Replied,
		UniqueUsers:     counts.UniqueUsers,
	})
}

// WindowStats aggregates messages created in the trailing days*24h, read
// from the messages table rather than from the daily rows.
func (s *StatsService) WindowStats(ctx context.Context, days int) (*model.WindowStats, error) {
	if days < 1 {
		return nil, ErrInvalidWindow
	}

	log := logger.Ctx(ctx, s.opts.log)
	cached, version, ok, err := s.opts.cache.GetWindow(ctx, days)
	cacheable := err == nil
	if err != nil {
		log.Warn("stats cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	since := s.opts.now().Add(-time.Duration(days) * 24 * time.Hour)
	counts, err := s.store.Messages.CountSince(ctx, since)
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "window stats", err, zap.Int("days", days))
	}
	rows, err := s.store.Messages.ListSince(ctx, since)
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "window stats", err, zap.Int("days", days))
	}

	stats := &model.WindowStats{
		Days:            days,
		TotalMessages:   counts.Total,
		NewMessages:     counts.New,
		RepliedMessages: counts.Replied,
		UniqueUsers:     counts.UniqueUsers,
		AvgResponseTime: counts.AvgResponse,
		Daily:           dailyBreakdown(rows),
	}

	if cacheable {
		if err := s.opts.cache.SetWindow(ctx, version, days, stats); err != nil {
			log.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// dailyBreakdown buckets messages by UTC day, newest day first.
func dailyBreakdown(rows []*model.Message) []model.DailyCount {
	byDay := make(map[string]*model.DailyCount)
	for _, m := range rows {
		key := model.DayKey(m.CreatedAt)
		d, ok := byDay[key]
		if !ok {
			d = &model.DailyCount{Day: key}
			byDay[key] = d
		}
		d.Messages++
		if m.Status == model.StatusReplied {
			d.Replied++
		}
	}

	daily := make([]model.DailyCount, 0, len(byDay))
	for _, d := range byDay {
		daily = append(daily, *d)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Day > daily[j].Day })
	return daily
}

// Snapshot returns the stored row for day. A day never recomputed reads as
// all zero.
func (s *StatsService) Snapshot(ctx context.Context, day time.Time) (*model.Statistic, error) {
	key := model.DayKey(day)
	stat, err := s.store.Statistics.FindByDate(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Statistic{Date: key}, nil
	}
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "statistics snapshot", err, zap.String("day", key))
	}
	return stat, nil
}

// Invalidate drops cached windows. Failures are logged only.
func (s *StatsService) Invalidate(ctx context.Context) {
	if err := s.opts.cache.Invalidate(ctx); err != nil {
		logger.Ctx(ctx, s.opts.log).Warn("stats cache invalidation failed", zap.Error(err))
	}
}
