package model

import (
	"fmt"
	"time"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority accepts the four priority tags; empty means medium.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Rank orders priorities for listing: critical first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 4
	}
	return 5
}

type TaskStatus string

const (
	TaskNew        TaskStatus = "new"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskNew, TaskInProgress, TaskReview, TaskCompleted, TaskCancelled:
		return TaskStatus(s), nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// Terminal reports whether no further transition is expected.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskCancelled
}

// Task is a unit of work. CreatedBy and AssignedTo hold platform identities.
type Task struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedBy   int64      `gorm:"index;not null" json:"created_by"`
	AssignedTo  *int64     `gorm:"index" json:"assigned_to,omitempty"`
	Priority    Priority   `gorm:"type:varchar(16);index;not null" json:"priority"`
	Status      TaskStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	Deadline    *time.Time `gorm:"index" json:"deadline,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (Task) TableName() string {
	return "tasks"
}

// OverdueAt reports whether the task is past its deadline and still open.
func (t *Task) OverdueAt(now time.Time) bool {
	return t.Deadline != nil && !t.Status.Terminal() && t.Deadline.Before(now)
}
