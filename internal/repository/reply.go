package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

type IReplyRepository interface {
	Create(ctx context.Context, reply *model.Reply) error
	// FirstByMessages maps each message id to its earliest reply.
	FirstByMessages(ctx context.Context, messageIDs []uint) (map[uint]*model.Reply, error)
	DeleteByMessages(ctx context.Context, messageIDs []uint) (int64, error)
	CountByMessage(ctx context.Context, messageID uint) (int64, error)
}

type ReplyRepository struct {
	db *gorm.DB
}

func NewReplyRepository(db *gorm.DB) IReplyRepository {
	return &ReplyRepository{db: db}
}

func (r *ReplyRepository) Create(ctx context.Context, reply *model.Reply) error {
	return r.db.WithContext(ctx).Create(reply).Error
}

func (r *ReplyRepository) FirstByMessages(ctx context.Context, messageIDs []uint) (map[uint]*model.Reply, error) {
	out := make(map[uint]*model.Reply, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}

	var replies []*model.Reply
	err := r.db.WithContext(ctx).
		Where("message_id IN ?", messageIDs).
		Order("created_at ASC").Order("id ASC").
		Find(&replies).Error
	if err != nil {
		return nil, err
	}
	for _, reply := range replies {
		if _, ok := out[reply.MessageID]; !ok {
			out[reply.MessageID] = reply
		}
	}
	return out, nil
}

func (r *ReplyRepository) DeleteByMessages(ctx context.Context, messageIDs []uint) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("message_id IN ?", messageIDs).Delete(&model.Reply{})
	return res.RowsAffected, res.Error
}

func (r *ReplyRepository) CountByMessage(ctx context.Context, messageID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Reply{}).Where("message_id = ?", messageID).Count(&n).Error
	return n, err
}
