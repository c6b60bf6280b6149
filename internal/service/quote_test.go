package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

func TestQuoteService_SeedDefaults(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quotes()
	ctx := context.Background()

	n, err := svc.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(defaultQuotes), n)

	n, err = svc.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a non-empty table is left alone")

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, len(defaultQuotes))

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Contains(t, categories, "motivation")
	assert.IsIncreasing(t, categories)
}

func TestQuoteService_Random(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quotes()
	ctx := context.Background()

	_, err := svc.Random(ctx, "")
	assert.ErrorIs(t, err, ErrQuoteNotFound)

	_, err = svc.SeedDefaults(ctx)
	require.NoError(t, err)

	q, err := svc.Random(ctx, "dreams")
	require.NoError(t, err)
	assert.Equal(t, "John C. Maxwell", q.Author)
	assert.Equal(t, 1, q.UsedCount)

	_, err = svc.Random(ctx, "dreams")
	require.NoError(t, err)

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, q.ID, list[0].ID, "most used first")
	assert.Equal(t, 2, list[0].UsedCount)

	_, err = svc.Random(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrQuoteNotFound)
}

func TestQuoteService_AddAndDelete(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quotes()
	ctx := context.Background()

	_, err := svc.Add(ctx, AddQuoteRequest{Text: "  "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	q, err := svc.Add(ctx, AddQuoteRequest{Text: " Keep going ", Author: " Anon ", CreatedBy: i64(leader)})
	require.NoError(t, err)
	assert.Equal(t, "Keep going", q.Text)
	assert.Equal(t, "Anon", q.Author)
	assert.Equal(t, "general", q.Category)

	list, err := svc.List(ctx, "general")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].CreatedBy)
	assert.Equal(t, leader, *list[0].CreatedBy)

	require.NoError(t, svc.Delete(ctx, q.ID))
	assert.ErrorIs(t, svc.Delete(ctx, q.ID), ErrQuoteNotFound)
}

func TestFormatQuote(t *testing.T) {
	assert.Equal(t, "💭 hi", formatQuote(&model.Quote{Text: "hi"}))
	assert.Equal(t, "💭 hi\n\n— Bob", formatQuote(&model.Quote{Text: "hi", Author: "Bob"}))
}
