package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/internal/model"
	"github.com/Gopher0727/FeedbackBot/internal/notifier"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
)

// OverdueKey identifies the overdue notice of one task on one UTC day.
func OverdueKey(taskID uint, day time.Time) string {
	return fmt.Sprintf("notify:overdue:%d:%s", taskID, model.DayKey(day))
}

type IDigestService interface {
	NotifyOverdue(ctx context.Context) (int, error)
	SendDailyDigest(ctx context.Context) (int, error)
	Motivate(ctx context.Context, actor int64, teamID uint, category string) (int, error)
}

// DigestService runs the periodic notices. Each method returns how many
// notifications were delivered.
type DigestService struct {
	store    *repository.Store
	tasks    ITaskService
	teams    ITeamService
	quotes   IQuoteService
	notifier notifier.Notifier
	opts     options
}

func NewDigestService(
	store *repository.Store,
	tasks ITaskService,
	teams ITeamService,
	quotes IQuoteService,
	n notifier.Notifier,
	opts ...Option,
) IDigestService {
	return &DigestService{
		store:    store,
		tasks:    tasks,
		teams:    teams,
		quotes:   quotes,
		notifier: n,
		opts:     buildOptions(opts),
	}
}

// NotifyOverdue warns the assignee of every overdue task at most once per
// task per day.
func (s *DigestService) NotifyOverdue(ctx context.Context) (int, error) {
	tasks, err := s.tasks.Overdue(ctx)
	if err != nil {
		return 0, err
	}

	log := logger.Ctx(ctx, s.opts.log)
	today := s.opts.now()
	sent := 0
	for _, task := range tasks {
		if task.AssignedTo == nil {
			continue
		}
		key := OverdueKey(task.ID, today)
		first, err := s.opts.deduper.First(ctx, key)
		if err != nil {
			log.Warn("overdue dedupe failed", zap.Uint("task_id", task.ID), zap.Error(err))
			continue
		}
		if !first {
			continue
		}

		err = s.notifier.Notify(ctx, &notifier.Notification{
			Recipient: *task.AssignedTo,
			Text:      formatOverdue(task),
			Format:    notifier.FormatMarkdown,
			Kind:      notifier.KindTaskOverdue,
		})
		if err != nil {
			log.Warn("overdue notification failed", zap.Uint("task_id", task.ID), zap.Error(err))
			if err := s.opts.deduper.Forget(ctx, key); err != nil {
				log.Warn("overdue dedupe release failed", zap.Uint("task_id", task.ID), zap.Error(err))
			}
			continue
		}
		sent++
	}
	return sent, nil
}

// SendDailyDigest sends every stored administrator the open tasks assigned to
// them that are due today.
func (s *DigestService) SendDailyDigest(ctx context.Context) (int, error) {
	admins, err := s.store.Admins.List(ctx)
	if err != nil {
		return 0, persistErr(ctx, s.opts.log, "list admins", err)
	}

	log := logger.Ctx(ctx, s.opts.log)
	start := model.DayStart(s.opts.now())
	end := start.Add(24 * time.Hour)
	sent := 0
	for _, admin := range admins {
		due, err := s.store.Tasks.ListDueBetween(ctx, admin.TelegramID, start, end)
		if err != nil {
			return sent, persistErr(ctx, s.opts.log, "list due tasks", err, zap.Int64("admin", admin.TelegramID))
		}
		if len(due) == 0 {
			continue
		}

		err = s.notifier.Notify(ctx, &notifier.Notification{
			Recipient: admin.TelegramID,
			Text:      formatDigest(due),
			Format:    notifier.FormatMarkdown,
			Kind:      notifier.KindDigest,
		})
		if err != nil {
			log.Warn("digest not delivered", zap.Int64("admin", admin.TelegramID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// Motivate sends a random quote to every member of the team. Only the team
// leader may trigger it.
func (s *DigestService) Motivate(ctx context.Context, actor int64, teamID uint, category string) (int, error) {
	team, err := s.store.Teams.FindByID(ctx, teamID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrTeamNotFound
	}
	if err != nil {
		return 0, persistErr(ctx, s.opts.log, "find team", err, zap.Uint("team_id", teamID))
	}
	if team.LeaderID == nil || *team.LeaderID != actor {
		return 0, ErrNotLeader
	}

	members, err := s.teams.Members(ctx, teamID)
	if err != nil {
		return 0, err
	}

	quote, err := s.quotes.Random(ctx, category)
	if err != nil {
		return 0, err
	}

	text := formatQuote(quote)
	sent := 0
	for _, m := range members {
		err := s.notifier.Notify(ctx, &notifier.Notification{
			Recipient: m.MemberID,
			Text:      text,
			Kind:      notifier.KindMotivation,
		})
		if err != nil {
			logger.Ctx(ctx, s.opts.log).Warn("motivation not delivered", zap.Int64("member", m.MemberID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}
