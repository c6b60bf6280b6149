package model

import (
	"fmt"
	"time"
)

type TeamRole string

const (
	TeamRoleLeader TeamRole = "leader"
	TeamRoleDeputy TeamRole = "deputy"
	TeamRoleMember TeamRole = "member"
)

// ParseTeamRole accepts the three roles; empty means member.
func ParseTeamRole(s string) (TeamRole, error) {
	switch TeamRole(s) {
	case "":
		return TeamRoleMember, nil
	case TeamRoleLeader, TeamRoleDeputy, TeamRoleMember:
		return TeamRole(s), nil
	}
	return "", fmt.Errorf("unknown team role %q", s)
}

type Team struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	LeaderID    *int64    `json:"leader_id,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (Team) TableName() string {
	return "teams"
}

type TeamMember struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID   uint      `gorm:"uniqueIndex:idx_team_member;index;not null" json:"team_id"`
	MemberID int64     `gorm:"uniqueIndex:idx_team_member;index;not null" json:"member_id"`
	Role     TeamRole  `gorm:"type:varchar(16);not null" json:"role"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

func (TeamMember) TableName() string {
	return "team_members"
}
