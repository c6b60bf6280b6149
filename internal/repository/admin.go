package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

type IAdminRepository interface {
	// EnsureExists inserts the admin unless the identity is already present.
	EnsureExists(ctx context.Context, admin *model.Admin) error
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.Admin, error)
	List(ctx context.Context) ([]*model.Admin, error)
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) IAdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) EnsureExists(ctx context.Context, admin *model.Admin) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "telegram_id"}}, DoNothing: true}).
		Create(admin).Error
}

func (r *AdminRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.Admin, error) {
	var admin model.Admin
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *AdminRepository) List(ctx context.Context) ([]*model.Admin, error) {
	var admins []*model.Admin
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}
