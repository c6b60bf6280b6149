package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories over one *gorm.DB so a group of writes can
// share a transaction.
type Store struct {
	db *gorm.DB

	Users      IUserRepository
	Admins     IAdminRepository
	Messages   IMessageRepository
	Replies    IReplyRepository
	Statistics IStatisticRepository
	Tasks      ITaskRepository
	Teams      ITeamRepository
	Quotes     IQuoteRepository
	Mentions   IMentionRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Users:      NewUserRepository(db),
		Admins:     NewAdminRepository(db),
		Messages:   NewMessageRepository(db),
		Replies:    NewReplyRepository(db),
		Statistics: NewStatisticRepository(db),
		Tasks:      NewTaskRepository(db),
		Teams:      NewTeamRepository(db),
		Quotes:     NewQuoteRepository(db),
		Mentions:   NewMentionRepository(db),
	}
}

// Transaction runs fn against a Store bound to a single transaction. Returning
// an error from fn rolls every write back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func (s *Store) DB() *gorm.DB {
	return s.db
}
