package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gopher0727/FeedbackBot/internal/notifier"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
	"github.com/Gopher0727/FeedbackBot/internal/storage"
)

var base = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testSettings struct {
	admins    []int64
	maxLength int
	retention int
	notifyOn  bool
}

func (s *testSettings) AdminIDs() []int64               { return append([]int64(nil), s.admins...) }
func (s *testSettings) MaxMessageLength() int           { return s.maxLength }
func (s *testSettings) AutoDeleteDays() int             { return s.retention }
func (s *testSettings) AdminNotificationsEnabled() bool { return s.notifyOn }

type testEnv struct {
	t        *testing.T
	store    *repository.Store
	clock    *testClock
	rec      *notifier.Recorder
	settings *testSettings
	log      *zap.Logger
	extra    []Option
}

const (
	adminA int64 = 1001
	adminB int64 = 1002
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.OpenMemory(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })

	return &testEnv{
		t:     t,
		store: repository.NewStore(db),
		clock: &testClock{now: base},
		rec:   notifier.NewRecorder(),
		settings: &testSettings{
			admins:    []int64{adminA, adminB},
			maxLength: 4000,
			retention: 90,
			notifyOn:  true,
		},
		log: zap.NewNop(),
	}
}

func (e *testEnv) options() []Option {
	opts := []Option{WithClock(e.clock.Now), WithLogger(e.log)}
	return append(opts, e.extra...)
}

func (e *testEnv) stats() IStatsService { return NewStatsService(e.store, e.options()...) }

func (e *testEnv) feedback() IFeedbackService {
	return NewFeedbackService(e.store, e.stats(), e.settings, e.rec, e.options()...)
}

func (e *testEnv) users() IUserService { return NewUserService(e.store, e.options()...) }

func (e *testEnv) admins() IAdminService {
	return NewAdminService(e.store, e.settings, e.rec, e.options()...)
}

func (e *testEnv) tasks() ITaskService { return NewTaskService(e.store, e.rec, e.options()...) }

func (e *testEnv) teams() ITeamService { return NewTeamService(e.store, e.rec, e.options()...) }

func (e *testEnv) quotes() IQuoteService { return NewQuoteService(e.store, e.options()...) }

func (e *testEnv) digest() IDigestService {
	return NewDigestService(e.store, e.tasks(), e.teams(), e.quotes(), e.rec, e.options()...)
}

// seedAdmins stores the configured administrators.
func (e *testEnv) seedAdmins() {
	e.t.Helper()
	require.NoError(e.t, e.admins().SeedAdmins(context.Background()))
}

func i64(v int64) *int64 { return &v }
