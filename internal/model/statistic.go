package model

import "time"

// DayLayout keys statistic rows.
const DayLayout = "2006-01-02"

// Statistic is the derived per-day counter row over messages created that day.
type Statistic struct {
	ID              uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	Date            string `gorm:"type:varchar(10);uniqueIndex;not null" json:"date"`
	TotalMessages   int64  `gorm:"not null" json:"total_messages"`
	NewMessages     int64  `gorm:"not null" json:"new_messages"`
	RepliedMessages int64  `gorm:"not null" json:"replied_messages"`
	UniqueUsers     int64  `gorm:"not null" json:"unique_users"`
}

func (Statistic) TableName() string {
	return "statistics"
}

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// DailyCount is one row of the per-day breakdown inside a window.
type DailyCount struct {
	Day      string `json:"day"`
	Messages int64  `json:"messages"`
	Replied  int64  `json:"replied"`
}

// WindowStats aggregates messages created in the trailing window.
type WindowStats struct {
	Days            int          `json:"days"`
	TotalMessages   int64        `json:"total_messages"`
	NewMessages     int64        `json:"new_messages"`
	RepliedMessages int64        `json:"replied_messages"`
	UniqueUsers     int64        `json:"unique_users"`
	AvgResponseTime float64      `json:"avg_response_time"`
	Daily           []DailyCount `json:"daily"`
}
