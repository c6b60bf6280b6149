package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

const teamRoleRankSQL = "CASE role WHEN 'leader' THEN 1 WHEN 'deputy' THEN 2 ELSE 3 END"

type ITeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	FindByID(ctx context.Context, id uint) (*model.Team, error)
	// UpsertMember adds the member or updates the role of an existing membership.
	UpsertMember(ctx context.Context, member *model.TeamMember) error
	Members(ctx context.Context, teamID uint) ([]*model.TeamMember, error)
	TeamsOf(ctx context.Context, memberID int64) ([]*model.Team, error)
}

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) ITeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *TeamRepository) FindByID(ctx context.Context, id uint) (*model.Team, error) {
	var team model.Team
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&team).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *TeamRepository) UpsertMember(ctx context.Context, member *model.TeamMember) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}, {Name: "member_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role"}),
	}).Create(member).Error
}

func (r *TeamRepository) Members(ctx context.Context, teamID uint) ([]*model.TeamMember, error) {
	var members []*model.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order(teamRoleRankSQL).
		Order("joined_at ASC").Order("id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *TeamRepository) TeamsOf(ctx context.Context, memberID int64) ([]*model.Team, error) {
	var teams []*model.Team
	err := r.db.WithContext(ctx).
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.member_id = ?", memberID).
		Order("teams.name ASC").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}
