package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Gopher0727/FeedbackBot/config"
	"github.com/Gopher0727/FeedbackBot/internal/service"
)

type fakeDigest struct {
	service.IDigestService
	overdue, digests int
	err              error
}

func (f *fakeDigest) NotifyOverdue(context.Context) (int, error) {
	f.overdue++
	return 3, f.err
}

func (f *fakeDigest) SendDailyDigest(context.Context) (int, error) {
	f.digests++
	return 2, f.err
}

type fakeFeedback struct {
	service.IFeedbackService
	cleanups int
}

func (f *fakeFeedback) CleanupExpired(ctx context.Context) (int64, error) {
	f.cleanups++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("no deadline")
	}
	return 7, nil
}

func schedules() *config.SchedulerConfig {
	return &config.SchedulerConfig{
		Enabled:     true,
		OverdueSpec: "0 * * * *",
		DigestSpec:  "0 9 * * *",
		CleanupSpec: "30 3 * * *",
	}
}

func TestNew_RegistersJobs(t *testing.T) {
	s, err := New(schedules(), &fakeDigest{}, &fakeFeedback{}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 3)

	next := s.cron.Entries()[0].Schedule.Next(time.Date(2025, 4, 10, 8, 15, 0, 0, time.UTC))
	assert.False(t, next.IsZero())
}

func TestNew_SkipsEmptySpec(t *testing.T) {
	cfg := schedules()
	cfg.DigestSpec = ""

	s, err := New(cfg, &fakeDigest{}, &fakeFeedback{}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)
}

func TestNew_InvalidSpec(t *testing.T) {
	cfg := schedules()
	cfg.CleanupSpec = "every night"

	_, err := New(cfg, &fakeDigest{}, &fakeFeedback{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobCleanup)
}

func TestRunNow(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	digest := &fakeDigest{}
	feedback := &fakeFeedback{}

	s, err := New(schedules(), digest, feedback, zap.New(core), WithJobTimeout(time.Second))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.RunNow(ctx, JobOverdue))
	require.NoError(t, s.RunNow(ctx, JobDigest))
	require.NoError(t, s.RunNow(ctx, JobCleanup))
	assert.Error(t, s.RunNow(ctx, "reindex"))

	assert.Equal(t, 1, digest.overdue)
	assert.Equal(t, 1, digest.digests)
	assert.Equal(t, 1, feedback.cleanups)

	finished := logs.FilterMessage("job finished").All()
	require.Len(t, finished, 3)
	assert.Equal(t, int64(7), finished[2].ContextMap()["affected"])
}

func TestRunNow_LogsFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	digest := &fakeDigest{err: errors.New("store down")}

	s, err := New(schedules(), digest, &fakeFeedback{}, zap.New(core))
	require.NoError(t, err)

	assert.Error(t, s.RunNow(context.Background(), JobOverdue))
	failed := logs.FilterMessage("job failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, JobOverdue, failed[0].ContextMap()["job"])
}

func TestStartStop(t *testing.T) {
	s, err := New(schedules(), &fakeDigest{}, &fakeFeedback{}, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestEnqueue_RunsOnWorker(t *testing.T) {
	digest := &fakeDigest{}
	s, err := New(schedules(), digest, &fakeFeedback{}, zap.NewNop())
	require.NoError(t, err)
	s.pool.Start()

	s.enqueue(s.jobs[0])
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, 1, digest.overdue)
}

func TestEnqueue_SkipsPendingJob(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	digest := &fakeDigest{}
	feedback := &fakeFeedback{}
	s, err := New(schedules(), digest, feedback, zap.New(core))
	require.NoError(t, err)

	// workers not started, so ticks stay queued
	for i := 0; i < 3; i++ {
		s.enqueue(s.jobs[0])
	}
	s.enqueue(s.jobs[1])
	s.enqueue(s.jobs[2])

	skipped := logs.FilterMessage("job skipped, previous run still pending").All()
	require.Len(t, skipped, 2)
	for _, e := range skipped {
		assert.Equal(t, JobOverdue, e.ContextMap()["job"])
	}

	s.pool.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	assert.Equal(t, 1, digest.overdue)
	assert.Equal(t, 1, digest.digests)
	assert.Equal(t, 1, feedback.cleanups)
}

func TestEnqueue_RequeuesAfterRunStarts(t *testing.T) {
	digest := &fakeDigest{}
	s, err := New(schedules(), digest, &fakeFeedback{}, zap.NewNop())
	require.NoError(t, err)
	s.pool.Start()

	s.enqueue(s.jobs[0])
	require.Eventually(t, func() bool { return !s.jobs[0].pending.Load() }, time.Second, 5*time.Millisecond)
	s.enqueue(s.jobs[0])

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, 2, digest.overdue)
}
