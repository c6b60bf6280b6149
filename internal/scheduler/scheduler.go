package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Gopher0727/FeedbackBot/config"
	"github.com/Gopher0727/FeedbackBot/internal/service"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
	"github.com/Gopher0727/FeedbackBot/utils/workerpool"
)

const defaultJobTimeout = 2 * time.Minute

// Job names, also used as log fields.
const (
	JobOverdue = "overdue_sweep"
	JobDigest  = "daily_digest"
	JobCleanup = "cleanup_expired"
)

type job struct {
	name string
	spec string
	run  func(ctx context.Context) (int64, error)

	// set while a tick of this job waits in the queue
	pending atomic.Bool
}

// Scheduler runs the periodic maintenance jobs on five-field cron specs.
// Runs go through a single worker so two jobs never hit the store at once.
type Scheduler struct {
	cron    *cron.Cron
	pool    *workerpool.Pool
	jobs    []*job
	timeout time.Duration
	log     *zap.Logger
}

type Option func(*Scheduler)

// WithJobTimeout bounds a single job run.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// WithLocation evaluates specs in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.cron = cron.New(cron.WithLocation(loc)) }
}

// New registers the overdue sweep, the daily digest and the retention cleanup.
// A job with an empty spec is skipped.
func New(
	cfg *config.SchedulerConfig,
	digest service.IDigestService,
	feedback service.IFeedbackService,
	log *zap.Logger,
	opts ...Option,
) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		timeout: defaultJobTimeout,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.jobs = []*job{
		{name: JobOverdue, spec: cfg.OverdueSpec, run: func(ctx context.Context) (int64, error) {
			n, err := digest.NotifyOverdue(ctx)
			return int64(n), err
		}},
		{name: JobDigest, spec: cfg.DigestSpec, run: func(ctx context.Context) (int64, error) {
			n, err := digest.SendDailyDigest(ctx)
			return int64(n), err
		}},
		{name: JobCleanup, spec: cfg.CleanupSpec, run: feedback.CleanupExpired},
	}

	s.pool = workerpool.New(1, len(s.jobs), log)

	for _, j := range s.jobs {
		if j.spec == "" {
			s.log.Info("job disabled", zap.String("job", j.name))
			continue
		}
		if _, err := s.cron.AddFunc(j.spec, func() { s.enqueue(j) }); err != nil {
			return nil, fmt.Errorf("invalid schedule for %s: %w", j.name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.pool.Start()
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop prevents new runs and waits for queued and running jobs until ctx is
// done.
func (s *Scheduler) Stop(ctx context.Context) error {
	<-s.cron.Stop().Done()

	done := make(chan struct{})
	go func() {
		s.pool.Stop()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue drops a tick when the same job is already waiting behind a slow
// run. Other jobs keep their own slot in the queue.
func (s *Scheduler) enqueue(j *job) {
	if !j.pending.CompareAndSwap(false, true) {
		s.log.Warn("job skipped, previous run still pending", zap.String("job", j.name))
		return
	}
	ok := s.pool.TrySubmit(func() {
		j.pending.Store(false)
		_ = s.runJob(context.Background(), j)
	})
	if !ok {
		j.pending.Store(false)
		s.log.Warn("job skipped, queue full", zap.String("job", j.name))
	}
}

// RunNow executes the named job once, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	for _, j := range s.jobs {
		if j.name == name {
			return s.runJob(ctx, j)
		}
	}
	return fmt.Errorf("unknown job %q", name)
}

func (s *Scheduler) runJob(ctx context.Context, j *job) error {
	ctx, cancel := context.WithTimeout(logger.WithTraceID(ctx, ""), s.timeout)
	defer cancel()
	log := logger.Ctx(ctx, s.log).With(zap.String("job", j.name))

	start := time.Now()
	n, err := j.run(ctx)
	if err != nil {
		log.Error("job failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return err
	}
	log.Info("job finished", zap.Int64("affected", n), zap.Duration("took", time.Since(start)))
	return nil
}
