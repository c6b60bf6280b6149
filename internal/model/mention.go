package model

import "time"

// GroupMention registers a user as reachable by broadcast mentions in a chat.
type GroupMention struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID     int64     `gorm:"uniqueIndex:idx_chat_user;index;not null" json:"chat_id"`
	UserID     int64     `gorm:"uniqueIndex:idx_chat_user;not null" json:"user_id"`
	TelegramID int64     `gorm:"not null" json:"telegram_id"`
	Username   string    `gorm:"type:varchar(64)" json:"username"`
	FirstName  string    `gorm:"type:varchar(128)" json:"first_name"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (GroupMention) TableName() string {
	return "group_mentions"
}
