package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/internal/model"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
)

const defaultQuoteCategory = "general"

var defaultQuotes = []model.Quote{
	{Text: "The only way to do great work is to love what you do.", Author: "Steve Jobs", Category: "work"},
	{Text: "The only man who never makes a mistake is the man who never does anything.", Author: "Theodore Roosevelt", Category: "motivation"},
	{Text: "Success is going from failure to failure without loss of enthusiasm.", Author: "Winston Churchill", Category: "success"},
	{Text: "The best way to predict the future is to create it.", Author: "Peter Drucker", Category: "future"},
	{Text: "The most difficult thing is the decision to act, the rest is merely tenacity.", Author: "Amelia Earhart", Category: "action"},
	{Text: "Your time is limited, so don't waste it living someone else's life.", Author: "Steve Jobs", Category: "life"},
	{Text: "Winning isn't everything, but wanting to win is.", Author: "Vince Lombardi", Category: "victory"},
	{Text: "Either you run the day or the day runs you.", Author: "Jim Rohn", Category: "time"},
	{Text: "The only limit to our realization of tomorrow will be our doubts of today.", Author: "Franklin D. Roosevelt", Category: "doubt"},
	{Text: "Dreams don't work unless you do.", Author: "John C. Maxwell", Category: "dreams"},
}

type AddQuoteRequest struct {
	Text      string `json:"text" binding:"required"`
	Author    string `json:"author"`
	Category  string `json:"category"`
	CreatedBy *int64 `json:"created_by"`
}

type IQuoteService interface {
	SeedDefaults(ctx context.Context) (int, error)
	Random(ctx context.Context, category string) (*model.Quote, error)
	Add(ctx context.Context, req AddQuoteRequest) (*model.Quote, error)
	List(ctx context.Context, category string) ([]*model.Quote, error)
	Delete(ctx context.Context, id uint) error
	Categories(ctx context.Context) ([]string, error)
}

type QuoteService struct {
	store *repository.Store
	opts  options
}

func NewQuoteService(store *repository.Store, opts ...Option) IQuoteService {
	return &QuoteService{store: store, opts: buildOptions(opts)}
}

// SeedDefaults fills an empty quote table with the built-in set and reports
// how many quotes were inserted.
func (s *QuoteService) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.store.Quotes.Count(ctx)
	if err != nil {
		return 0, persistErr(ctx, s.opts.log, "count quotes", err)
	}
	if n > 0 {
		return 0, nil
	}

	now := s.opts.now()
	quotes := make([]*model.Quote, len(defaultQuotes))
	for i := range defaultQuotes {
		q := defaultQuotes[i]
		q.CreatedAt = now
		quotes[i] = &q
	}
	if err := s.store.Quotes.CreateBatch(ctx, quotes); err != nil {
		return 0, persistErr(ctx, s.opts.log, "seed quotes", err)
	}
	s.opts.log.Info("default quotes seeded", zap.Int("count", len(quotes)))
	return len(quotes), nil
}

// Random draws a quote, optionally from one category, and counts the use.
func (s *QuoteService) Random(ctx context.Context, category string) (*model.Quote, error) {
	quote, err := s.store.Quotes.Random(ctx, strings.TrimSpace(category))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuoteNotFound
	}
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "random quote", err, zap.String("category", category))
	}

	if err := s.store.Quotes.IncrementUsage(ctx, quote.ID); err != nil {
		return nil, persistErr(ctx, s.opts.log, "count quote use", err, zap.Uint("quote_id", quote.ID))
	}
	quote.UsedCount++
	return quote, nil
}

func (s *QuoteService) Add(ctx context.Context, req AddQuoteRequest) (*model.Quote, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = defaultQuoteCategory
	}

	quote := &model.Quote{
		Text:      text,
		Author:    strings.TrimSpace(req.Author),
		Category:  category,
		CreatedBy: req.CreatedBy,
		CreatedAt: s.opts.now(),
	}
	if err := s.store.Quotes.Create(ctx, quote); err != nil {
		return nil, persistErr(ctx, s.opts.log, "add quote", err)
	}
	return quote, nil
}

// List orders quotes by how often they were drawn, most used first.
func (s *QuoteService) List(ctx context.Context, category string) ([]*model.Quote, error) {
	quotes, err := s.store.Quotes.List(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "list quotes", err)
	}
	return quotes, nil
}

func (s *QuoteService) Delete(ctx context.Context, id uint) error {
	n, err := s.store.Quotes.Delete(ctx, id)
	if err != nil {
		return persistErr(ctx, s.opts.log, "delete quote", err, zap.Uint("quote_id", id))
	}
	if n == 0 {
		return ErrQuoteNotFound
	}
	return nil
}

func (s *QuoteService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.store.Quotes.Categories(ctx)
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "quote categories", err)
	}
	return categories, nil
}
