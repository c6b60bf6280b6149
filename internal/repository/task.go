package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

const priorityRankSQL = "CASE priority WHEN 'critical' THEN 1 WHEN 'high' THEN 2 WHEN 'medium' THEN 3 WHEN 'low' THEN 4 ELSE 5 END"

// TaskFilter narrows ListAll. Nil fields do not filter.
type TaskFilter struct {
	Status     *model.TaskStatus
	Priority   *model.Priority
	AssignedTo *int64
	CreatedBy  *int64
	Limit      int
}

type ITaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uint) (*model.Task, error)
	UpdateAssignee(ctx context.Context, id uint, assignee int64, at time.Time) (int64, error)
	// UpdateStatusAsAssignee changes status only when actor is the current
	// assignee. completedAt is written only when non-nil.
	UpdateStatusAsAssignee(ctx context.Context, id uint, actor int64, status model.TaskStatus, at time.Time, completedAt *time.Time) (int64, error)
	Delete(ctx context.Context, id uint) (int64, error)
	ListByAssignee(ctx context.Context, assignee int64, status *model.TaskStatus) ([]*model.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*model.Task, error)
	ListOverdue(ctx context.Context, now time.Time) ([]*model.Task, error)
	ListDueBetween(ctx context.Context, assignee int64, from, to time.Time) ([]*model.Task, error)
}

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) ITaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) UpdateAssignee(ctx context.Context, id uint, assignee int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", id).
		Updates(map[string]any{"assigned_to": assignee, "updated_at": at})
	return res.RowsAffected, res.Error
}

func (r *TaskRepository) UpdateStatusAsAssignee(ctx context.Context, id uint, actor int64, status model.TaskStatus, at time.Time, completedAt *time.Time) (int64, error) {
	updates := map[string]any{"status": status, "updated_at": at}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND assigned_to = ?", id, actor).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *TaskRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{})
	return res.RowsAffected, res.Error
}

func (r *TaskRepository) ListByAssignee(ctx context.Context, assignee int64, status *model.TaskStatus) ([]*model.Task, error) {
	query := r.db.WithContext(ctx).Where("assigned_to = ?", assignee)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var tasks []*model.Task
	err := query.
		Order(priorityRankSQL).
		Order("deadline IS NULL").
		Order("deadline ASC").
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]*model.Task, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var tasks []*model.Task
	if err := query.Order("created_at DESC").Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) ListOverdue(ctx context.Context, now time.Time) ([]*model.Task, error) {
	var tasks []*model.Task
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []model.TaskStatus{model.TaskCompleted, model.TaskCancelled}).
		Where("deadline IS NOT NULL AND deadline < ?", now).
		Order("deadline ASC").Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) ListDueBetween(ctx context.Context, assignee int64, from, to time.Time) ([]*model.Task, error) {
	var tasks []*model.Task
	err := r.db.WithContext(ctx).
		Where("assigned_to = ?", assignee).
		Where("status NOT IN ?", []model.TaskStatus{model.TaskCompleted, model.TaskCancelled}).
		Where("deadline >= ? AND deadline < ?", from, to).
		Order("deadline ASC").Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
