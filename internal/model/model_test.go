package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func strPtr(s string) *string { return &s }

func TestParseBanUntil(t *testing.T) {
	want := time.Date(2030, 5, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"space layout", "2030-05-01 12:30:00", true},
		{"rfc3339 zulu", "2030-05-01T12:30:00Z", true},
		{"rfc3339 offset", "2030-05-01T14:30:00+02:00", true},
		{"iso without zone", "2030-05-01T12:30:00", true},
		{"garbage", "next tuesday", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseBanUntil(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, want.Equal(got), "got %v", got)
			}
		})
	}
}

func TestUserBannedAt(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		user *User
		want bool
	}{
		{"nil user", nil, false},
		{"not banned", &User{}, false},
		{"banned future", &User{IsBanned: true, BanUntil: strPtr("2025-01-02 00:00:00")}, true},
		{"banned past", &User{IsBanned: true, BanUntil: strPtr("2024-12-31 00:00:00")}, false},
		{"banned without expiry", &User{IsBanned: true}, false},
		{"banned unreadable expiry", &User{IsBanned: true, BanUntil: strPtr("forever")}, false},
		{"expiry set but flag off", &User{BanUntil: strPtr("2030-01-01 00:00:00")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.BannedAt(now))
		})
	}
}

func TestFormatBanUntilRoundTrip(t *testing.T) {
	ts := time.Date(2031, 2, 3, 4, 5, 6, 0, time.UTC)
	got, ok := ParseBanUntil(FormatBanUntil(ts))
	require.True(t, ok)
	assert.True(t, ts.Equal(got))
}

func TestResponseMinutes(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, ResponseMinutes(base, base))
	assert.Equal(t, 0, ResponseMinutes(base, base.Add(59*time.Second)))
	assert.Equal(t, 1, ResponseMinutes(base, base.Add(119*time.Second)))
	assert.Equal(t, 120, ResponseMinutes(base, base.Add(2*time.Hour)))
	assert.Equal(t, 0, ResponseMinutes(base, base.Add(-time.Hour)))

	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, 30, ResponseMinutes(base, base.Add(30*time.Minute).In(est)))
}

func TestResponseMinutesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		created := time.Unix(rapid.Int64Range(0, 4e9).Draw(t, "created"), 0).UTC()
		delta := time.Duration(rapid.Int64Range(-1e6, 1e7).Draw(t, "delta")) * time.Second
		got := ResponseMinutes(created, created.Add(delta))

		if got < 0 {
			t.Fatalf("negative response time %d", got)
		}
		if delta > 0 {
			lower := time.Duration(got) * time.Minute
			if lower > delta || delta >= lower+time.Minute {
				t.Fatalf("minutes %d do not floor %v", got, delta)
			}
		}
	})
}

func TestParseEnums(t *testing.T) {
	t.Run("category", func(t *testing.T) {
		c, err := ParseCategory("")
		require.NoError(t, err)
		assert.Equal(t, CategoryGeneral, c)
		for _, want := range Categories() {
			got, err := ParseCategory(string(want))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		_, err = ParseCategory("rant")
		assert.Error(t, err)
	})

	t.Run("priority", func(t *testing.T) {
		p, err := ParsePriority("")
		require.NoError(t, err)
		assert.Equal(t, PriorityMedium, p)
		_, err = ParsePriority("urgent")
		assert.Error(t, err)
	})

	t.Run("task status", func(t *testing.T) {
		for _, s := range []string{"new", "in_progress", "review", "completed", "cancelled"} {
			_, err := ParseTaskStatus(s)
			assert.NoError(t, err, s)
		}
		_, err := ParseTaskStatus("done")
		assert.Error(t, err)
		_, err = ParseTaskStatus("")
		assert.Error(t, err)
	})

	t.Run("team role", func(t *testing.T) {
		r, err := ParseTeamRole("")
		require.NoError(t, err)
		assert.Equal(t, TeamRoleMember, r)
		_, err = ParseTeamRole("owner")
		assert.Error(t, err)
	})

	t.Run("message status", func(t *testing.T) {
		_, err := ParseMessageStatus("replied")
		assert.NoError(t, err)
		_, err = ParseMessageStatus("archived")
		assert.Error(t, err)
	})
}

func TestPriorityRankOrder(t *testing.T) {
	assert.Less(t, PriorityCritical.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
}

func TestTaskOverdueAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Task{Status: TaskInProgress, Deadline: &past}).OverdueAt(now))
	assert.False(t, (&Task{Status: TaskCompleted, Deadline: &past}).OverdueAt(now))
	assert.False(t, (&Task{Status: TaskCancelled, Deadline: &past}).OverdueAt(now))
	assert.False(t, (&Task{Status: TaskNew, Deadline: &future}).OverdueAt(now))
	assert.False(t, (&Task{Status: TaskNew}).OverdueAt(now))
	assert.False(t, (&Task{Status: TaskNew, Deadline: &now}).OverdueAt(now))
}

func TestAdminHasPermission(t *testing.T) {
	a := &Admin{Permissions: DefaultAdminPermissions}
	assert.True(t, a.HasPermission("reply"))
	assert.True(t, a.HasPermission("broadcast"))
	assert.False(t, a.HasPermission("rep"))
	assert.False(t, (&Admin{}).HasPermission("read"))
}

func TestDayStartAndKey(t *testing.T) {
	local := time.Date(2025, 1, 1, 1, 30, 0, 0, time.FixedZone("X", 3*3600))
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), DayStart(local))
	assert.Equal(t, "2024-12-31", DayKey(local))
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Ann Lee (@ann)", (&User{FirstName: "Ann", LastName: "Lee", Username: "ann"}).DisplayName())
	assert.Equal(t, "unknown", (&User{}).DisplayName())
}
