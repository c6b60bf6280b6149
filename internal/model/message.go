package model

import (
	"fmt"
	"math"
	"time"
)

type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryBug        Category = "bug"
	CategorySuggestion Category = "suggestion"
	CategoryQuestion   Category = "question"
	CategoryProblem    Category = "problem"
	CategoryThanks     Category = "thanks"
)

var categories = []Category{
	CategoryGeneral, CategoryBug, CategorySuggestion,
	CategoryQuestion, CategoryProblem, CategoryThanks,
}

// Categories lists the accepted feedback categories in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory maps an inbound tag onto the closed category set. An empty tag
// means general.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryGeneral, nil
	}
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

type MessageStatus string

const (
	StatusNew     MessageStatus = "new"
	StatusReplied MessageStatus = "replied"
)

func ParseMessageStatus(s string) (MessageStatus, error) {
	switch MessageStatus(s) {
	case StatusNew, StatusReplied:
		return MessageStatus(s), nil
	}
	return "", fmt.Errorf("unknown message status %q", s)
}

// Message is one feedback submission. Status, RepliedAt and ResponseTime move
// together: either all unset (new) or all set (replied).
type Message struct {
	ID           uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint          `gorm:"index;not null" json:"user_id"`
	Text         string        `gorm:"type:text;not null" json:"text"`
	Category     Category      `gorm:"type:varchar(16);not null" json:"category"`
	Status       MessageStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	IsAnonymous  bool          `gorm:"not null" json:"is_anonymous"`
	CreatedAt    time.Time     `gorm:"index;not null" json:"created_at"`
	RepliedAt    *time.Time    `json:"replied_at,omitempty"`
	ResponseTime *int          `json:"response_time,omitempty"`

	User    *User   `gorm:"foreignKey:UserID" json:"-"`
	Replies []Reply `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}

// Reply is an administrator's answer to a message.
type Reply struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID uint      `gorm:"index;not null" json:"message_id"`
	AdminID   uint      `gorm:"index;not null" json:"admin_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	Admin *Admin `gorm:"foreignKey:AdminID" json:"-"`
}

func (Reply) TableName() string {
	return "replies"
}

// ResponseMinutes is the whole number of minutes between creation and reply,
// rounded down and never negative.
func ResponseMinutes(created, replied time.Time) int {
	d := replied.UTC().Sub(created.UTC())
	if d <= 0 {
		return 0
	}
	return int(math.Floor(d.Minutes()))
}

// MessageWithReply is a sender's view of one of their messages.
type MessageWithReply struct {
	Message
	ReplyText *string    `json:"reply_text,omitempty"`
	ReplyAt   *time.Time `json:"reply_at,omitempty"`
}

// PendingMessage is an administrator's view of an unanswered message.
type PendingMessage struct {
	Message
	SenderIdentity int64  `json:"sender_identity"`
	SenderUsername string `json:"sender_username,omitempty"`
	SenderName     string `json:"sender_name,omitempty"`
}
