package model

import "time"

type Quote struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Author    string    `gorm:"type:varchar(128)" json:"author"`
	Category  string    `gorm:"type:varchar(32);index;not null" json:"category"`
	UsedCount int       `gorm:"not null" json:"used_count"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Quote) TableName() string {
	return "quotes"
}
