package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/internal/model"
	"github.com/Gopher0727/FeedbackBot/internal/notifier"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
)

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	CreatedBy   int64      `json:"created_by" binding:"required"`
	AssignedTo  *int64     `json:"assigned_to"`
	Priority    string     `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
}

// TaskFilter narrows ListAll. Empty fields do not filter.
type TaskFilter struct {
	Status     string
	Priority   string
	AssignedTo *int64
	CreatedBy  *int64
	Limit      int
}

type ITaskService interface {
	Create(ctx context.Context, req CreateTaskRequest) (*model.Task, error)
	Get(ctx context.Context, id uint) (*model.Task, error)
	Assign(ctx context.Context, id uint, assignee int64) error
	SetStatus(ctx context.Context, id uint, status string, actor int64) error
	Delete(ctx context.Context, id uint, actor int64) error
	ListForAssignee(ctx context.Context, assignee int64, status string) ([]*model.Task, error)
	ListAll(ctx context.Context, filter TaskFilter) ([]*model.Task, error)
	Overdue(ctx context.Context) ([]*model.Task, error)
}

type TaskService struct {
	store    *repository.Store
	notifier notifier.Notifier
	opts     options
}

func NewTaskService(store *repository.Store, n notifier.Notifier, opts ...Option) ITaskService {
	return &TaskService{store: store, notifier: n, opts: buildOptions(opts)}
}

func (s *TaskService) Create(ctx context.Context, req CreateTaskRequest) (*model.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		return nil, ErrInvalidPriority
	}

	now := s.opts.now()
	task := &model.Task{
		Title:       title,
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
		AssignedTo:  req.AssignedTo,
		Priority:    priority,
		Status:      model.TaskNew,
		Deadline:    utcPtr(req.Deadline),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Tasks.Create(ctx, task); err != nil {
		return nil, persistErr(ctx, s.opts.log, "create task", err, zap.Int64("creator", req.CreatedBy))
	}

	logger.Ctx(ctx, s.opts.log).Info("task created", zap.Uint("task_id", task.ID), zap.String("priority", string(priority)))
	if task.AssignedTo != nil {
		s.notifyAssignee(ctx, task, *task.AssignedTo)
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, id uint) (*model.Task, error) {
	task, err := s.store.Tasks.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "get task", err, zap.Uint("task_id", id))
	}
	return task, nil
}

// Assign hands the task to assignee regardless of its current state.
func (s *TaskService) Assign(ctx context.Context, id uint, assignee int64) error {
	n, err := s.store.Tasks.UpdateAssignee(ctx, id, assignee, s.opts.now())
	if err != nil {
		return persistErr(ctx, s.opts.log, "assign task", err, zap.Uint("task_id", id))
	}
	if n == 0 {
		return ErrTaskNotFound
	}

	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.notifyAssignee(ctx, task, assignee)
	return nil
}

// SetStatus moves the task to status on behalf of actor, who must be the
// current assignee. Transitions are not restricted beyond that.
func (s *TaskService) SetStatus(ctx context.Context, id uint, status string, actor int64) error {
	next, err := model.ParseTaskStatus(status)
	if err != nil {
		return ErrInvalidTaskStatus
	}

	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if task.AssignedTo == nil || *task.AssignedTo != actor {
		return ErrNotAssignee
	}

	now := s.opts.now()
	var completedAt *time.Time
	if next == model.TaskCompleted {
		completedAt = &now
	}

	n, err := s.store.Tasks.UpdateStatusAsAssignee(ctx, id, actor, next, now, completedAt)
	if err != nil {
		return persistErr(ctx, s.opts.log, "set task status", err, zap.Uint("task_id", id))
	}
	if n == 0 {
		// reassigned between the read and the update
		return ErrNotAssignee
	}

	logger.Ctx(ctx, s.opts.log).Info("task status changed",
		zap.Uint("task_id", id),
		zap.String("from", string(task.Status)),
		zap.String("to", string(next)),
	)
	return nil
}

func (s *TaskService) Delete(ctx context.Context, id uint, actor int64) error {
	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if task.CreatedBy != actor {
		return ErrNotCreator
	}
	if _, err := s.store.Tasks.Delete(ctx, id); err != nil {
		return persistErr(ctx, s.opts.log, "delete task", err, zap.Uint("task_id", id))
	}
	return nil
}

// ListForAssignee orders by priority, most urgent first, then by deadline
// with undated tasks last.
func (s *TaskService) ListForAssignee(ctx context.Context, assignee int64, status string) ([]*model.Task, error) {
	var filter *model.TaskStatus
	if status != "" {
		st, err := model.ParseTaskStatus(status)
		if err != nil {
			return nil, ErrInvalidTaskStatus
		}
		filter = &st
	}

	tasks, err := s.store.Tasks.ListByAssignee(ctx, assignee, filter)
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "list assignee tasks", err, zap.Int64("assignee", assignee))
	}
	return tasks, nil
}

func (s *TaskService) ListAll(ctx context.Context, filter TaskFilter) ([]*model.Task, error) {
	repoFilter := repository.TaskFilter{
		AssignedTo: filter.AssignedTo,
		CreatedBy:  filter.CreatedBy,
		Limit:      filter.Limit,
	}
	if filter.Status != "" {
		st, err := model.ParseTaskStatus(filter.Status)
		if err != nil {
			return nil, ErrInvalidTaskStatus
		}
		repoFilter.Status = &st
	}
	if filter.Priority != "" {
		p, err := model.ParsePriority(filter.Priority)
		if err != nil {
			return nil, ErrInvalidPriority
		}
		repoFilter.Priority = &p
	}

	tasks, err := s.store.Tasks.List(ctx, repoFilter)
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "list tasks", err)
	}
	return tasks, nil
}

// Overdue lists open tasks whose deadline has passed, earliest first.
func (s *TaskService) Overdue(ctx context.Context) ([]*model.Task, error) {
	tasks, err := s.store.Tasks.ListOverdue(ctx, s.opts.now())
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "list overdue tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) notifyAssignee(ctx context.Context, task *model.Task, assignee int64) {
	err := s.notifier.Notify(ctx, &notifier.Notification{
		Recipient: assignee,
		Text:      formatTaskAssigned(task),
		Format:    notifier.FormatMarkdown,
		Kind:      notifier.KindTaskAssigned,
	})
	if err != nil {
		logger.Ctx(ctx, s.opts.log).Warn("assignee notification failed",
			zap.Uint("task_id", task.ID), zap.Int64("assignee", assignee), zap.Error(err))
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
