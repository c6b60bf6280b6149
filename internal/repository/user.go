package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

type IUserRepository interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	Upsert(ctx context.Context, user *model.User) (uint, error)
	SetBan(ctx context.Context, telegramID int64, banned bool, reason, until *string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) IUserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert inserts the user or refreshes the profile columns of an existing row.
// Ban columns are never touched here.
func (r *UserRepository) Upsert(ctx context.Context, user *model.User) (uint, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "last_activity"}),
	}).Create(user).Error
	if err != nil {
		return 0, err
	}

	var id uint
	err = r.db.WithContext(ctx).Model(&model.User{}).
		Where("telegram_id = ?", user.TelegramID).
		Pluck("id", &id).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *UserRepository) SetBan(ctx context.Context, telegramID int64, banned bool, reason, until *string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]any{
			"is_banned":  banned,
			"ban_reason": reason,
			"ban_until":  until,
		})
	return res.RowsAffected, res.Error
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}
