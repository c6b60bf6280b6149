package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

type IQuoteRepository interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, quote *model.Quote) error
	CreateBatch(ctx context.Context, quotes []*model.Quote) error
	// Random picks one quote, optionally restricted to category.
	Random(ctx context.Context, category string) (*model.Quote, error)
	IncrementUsage(ctx context.Context, id uint) error
	List(ctx context.Context, category string) ([]*model.Quote, error)
	Delete(ctx context.Context, id uint) (int64, error)
	Categories(ctx context.Context) ([]string, error)
}

type QuoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) IQuoteRepository {
	return &QuoteRepository{db: db}
}

func (r *QuoteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Quote{}).Count(&n).Error
	return n, err
}

func (r *QuoteRepository) Create(ctx context.Context, quote *model.Quote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *QuoteRepository) CreateBatch(ctx context.Context, quotes []*model.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(quotes).Error
}

func (r *QuoteRepository) Random(ctx context.Context, category string) (*model.Quote, error) {
	query := r.db.WithContext(ctx)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var quote model.Quote
	if err := query.Order("RANDOM()").Take(&quote).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *QuoteRepository) IncrementUsage(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.Quote{}).
		Where("id = ?", id).
		UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
}

func (r *QuoteRepository) List(ctx context.Context, category string) ([]*model.Quote, error) {
	query := r.db.WithContext(ctx)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var quotes []*model.Quote
	if err := query.Order("used_count DESC").Order("id ASC").Find(&quotes).Error; err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *QuoteRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Quote{})
	return res.RowsAffected, res.Error
}

func (r *QuoteRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).Model(&model.Quote{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}
