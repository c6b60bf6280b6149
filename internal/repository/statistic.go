package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

type IStatisticRepository interface {
	// Upsert writes the row for stat.Date, replacing the counters of an existing row.
	Upsert(ctx context.Context, stat *model.Statistic) error
	FindByDate(ctx context.Context, date string) (*model.Statistic, error)
}

type StatisticRepository struct {
	db *gorm.DB
}

func NewStatisticRepository(db *gorm.DB) IStatisticRepository {
	return &StatisticRepository{db: db}
}

func (r *StatisticRepository) Upsert(ctx context.Context, stat *model.Statistic) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_messages", "new_messages", "replied_messages", "unique_users"}),
	}).Create(stat).Error
}

func (r *StatisticRepository) FindByDate(ctx context.Context, date string) (*model.Statistic, error) {
	var stat model.Statistic
	if err := r.db.WithContext(ctx).Where("date = ?", date).First(&stat).Error; err != nil {
		return nil, err
	}
	return &stat, nil
}
