package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

type IMentionRepository interface {
	// Register inserts the (chat, user) pair; created is false when it already existed.
	Register(ctx context.Context, mention *model.GroupMention) (created bool, err error)
	ListByChat(ctx context.Context, chatID int64) ([]*model.GroupMention, error)
	Exists(ctx context.Context, chatID, userID int64) (bool, error)
}

type MentionRepository struct {
	db *gorm.DB
}

func NewMentionRepository(db *gorm.DB) IMentionRepository {
	return &MentionRepository{db: db}
}

func (r *MentionRepository) Register(ctx context.Context, mention *model.GroupMention) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(mention)
	return res.RowsAffected > 0, res.Error
}

func (r *MentionRepository) ListByChat(ctx context.Context, chatID int64) ([]*model.GroupMention, error) {
	var mentions []*model.GroupMention
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").Order("id ASC").
		Find(&mentions).Error
	if err != nil {
		return nil, err
	}
	return mentions, nil
}

func (r *MentionRepository) Exists(ctx context.Context, chatID, userID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.GroupMention{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&n).Error
	return n > 0, err
}
