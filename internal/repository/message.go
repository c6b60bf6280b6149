package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

// MessageCounts is the aggregate over a set of messages.
type MessageCounts struct {
	Total       int64   `gorm:"column:total"`
	New         int64   `gorm:"column:new_count"`
	Replied     int64   `gorm:"column:replied_count"`
	UniqueUsers int64   `gorm:"column:unique_users"`
	AvgResponse float64 `gorm:"column:avg_response"`
}

const countsSelect = "COUNT(*) AS total, " +
	"COALESCE(SUM(CASE WHEN status = 'new' THEN 1 ELSE 0 END), 0) AS new_count, " +
	"COALESCE(SUM(CASE WHEN status = 'replied' THEN 1 ELSE 0 END), 0) AS replied_count, " +
	"COUNT(DISTINCT user_id) AS unique_users, " +
	"COALESCE(AVG(CAST(response_time AS DOUBLE PRECISION)), 0) AS avg_response"

type IMessageRepository interface {
	Create(ctx context.Context, message *model.Message) error
	FindByID(ctx context.Context, id uint) (*model.Message, error)
	// MarkReplied moves a message from new to replied. It affects zero rows when
	// the message was already replied.
	MarkReplied(ctx context.Context, id uint, at time.Time, responseMinutes int) (int64, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]*model.Message, error)
	ListByStatus(ctx context.Context, status model.MessageStatus, limit int) ([]*model.Message, error)
	// CountBetween aggregates messages created in [from, to).
	CountBetween(ctx context.Context, from, to time.Time) (*MessageCounts, error)
	// CountSince aggregates messages created at or after since.
	CountSince(ctx context.Context, since time.Time) (*MessageCounts, error)
	// ListSince returns id, status and created_at of messages created at or after since.
	ListSince(ctx context.Context, since time.Time) ([]*model.Message, error)
	// FindRepliedBefore returns id and created_at of replied messages created before cutoff.
	FindRepliedBefore(ctx context.Context, cutoff time.Time) ([]*model.Message, error)
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
}

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) IMessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *MessageRepository) FindByID(ctx context.Context, id uint) (*model.Message, error) {
	var message model.Message
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) MarkReplied(ctx context.Context, id uint, at time.Time, responseMinutes int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND status = ?", id, model.StatusNew).
		Updates(map[string]any{
			"status":        model.StatusReplied,
			"replied_at":    at,
			"response_time": responseMinutes,
		})
	return res.RowsAffected, res.Error
}

func (r *MessageRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MessageRepository) ListByStatus(ctx context.Context, status model.MessageStatus, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).Preload("User").
		Where("status = ?", status).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MessageRepository) CountBetween(ctx context.Context, from, to time.Time) (*MessageCounts, error) {
	var counts MessageCounts
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select(countsSelect).
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *MessageRepository) CountSince(ctx context.Context, since time.Time) (*MessageCounts, error) {
	var counts MessageCounts
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select(countsSelect).
		Where("created_at >= ?", since).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *MessageRepository) ListSince(ctx context.Context, since time.Time) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Select("id", "status", "created_at").
		Where("created_at >= ?", since).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MessageRepository) FindRepliedBefore(ctx context.Context, cutoff time.Time) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Select("id", "created_at").
		Where("status = ? AND created_at < ?", model.StatusReplied, cutoff).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MessageRepository) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Message{})
	return res.RowsAffected, res.Error
}
