package model

import (
	"strings"
	"time"
)

// BanUntilLayout is the layout ban expiries are written in.
const BanUntilLayout = "2006-01-02 15:04:05"

// User is an end-user who has written to the bot. Rows are never hard-deleted.
type User struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	TelegramID int64   `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Username   string  `gorm:"type:varchar(64)" json:"username"`
	FirstName  string  `gorm:"type:varchar(128)" json:"first_name"`
	LastName   string  `gorm:"type:varchar(128)" json:"last_name"`
	IsBanned   bool    `gorm:"not null" json:"is_banned"`
	BanReason  *string `gorm:"type:text" json:"ban_reason,omitempty"`
	BanUntil   *string `gorm:"type:varchar(40)" json:"ban_until,omitempty"`

	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	LastActivity time.Time `gorm:"not null" json:"last_activity"`
}

func (User) TableName() string {
	return "users"
}

// ParseBanUntil reads a stored ban expiry. Both the space separated layout and
// RFC 3339 (with or without a trailing Z) are accepted; anything else reports ok=false.
func ParseBanUntil(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	layouts := []string{
		BanUntilLayout,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.999999",
		"2006-01-02 15:04:05.999999",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatBanUntil renders t in the layout ParseBanUntil reads first.
func FormatBanUntil(t time.Time) string {
	return t.UTC().Format(BanUntilLayout)
}

// BannedAt reports whether the user is blocked at now. A ban flag whose expiry
// is absent or unreadable does not block.
func (u *User) BannedAt(now time.Time) bool {
	if u == nil || !u.IsBanned || u.BanUntil == nil {
		return false
	}
	until, ok := ParseBanUntil(*u.BanUntil)
	if !ok {
		return false
	}
	return until.After(now)
}

// DisplayName is what administrators see for a non-anonymous sender.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = "unknown"
	}
	if u.Username != "" {
		name += " (@" + u.Username + ")"
	}
	return name
}
