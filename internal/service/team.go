package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/internal/model"
	"github.com/Gopher0727/FeedbackBot/internal/notifier"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
)

type CreateTeamRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Leader      *int64 `json:"leader"`
}

type ITeamService interface {
	Create(ctx context.Context, req CreateTeamRequest) (*model.Team, error)
	AddMember(ctx context.Context, teamID uint, actor, member int64, role string) error
	Members(ctx context.Context, teamID uint) ([]*model.TeamMember, error)
	TeamsOf(ctx context.Context, member int64) ([]*model.Team, error)
}

type TeamService struct {
	store    *repository.Store
	notifier notifier.Notifier
	opts     options
}

func NewTeamService(store *repository.Store, n notifier.Notifier, opts ...Option) ITeamService {
	return &TeamService{store: store, notifier: n, opts: buildOptions(opts)}
}

// Create stores the team and, when a leader is given, makes them its first
// member in the same transaction.
func (s *TeamService) Create(ctx context.Context, req CreateTeamRequest) (*model.Team, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	now := s.opts.now()
	team := &model.Team{Name: name, Description: req.Description, LeaderID: req.Leader, CreatedAt: now}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Teams.Create(ctx, team); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrTeamExists
			}
			return err
		}
		if req.Leader == nil {
			return nil
		}
		return tx.Teams.UpsertMember(ctx, &model.TeamMember{
			TeamID:   team.ID,
			MemberID: *req.Leader,
			Role:     model.TeamRoleLeader,
			JoinedAt: now,
		})
	})
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "create team", err, zap.String("name", name))
	}
	return team, nil
}

// AddMember adds member to the team or changes their role. Only the team
// leader may do so.
func (s *TeamService) AddMember(ctx context.Context, teamID uint, actor, member int64, role string) error {
	r, err := model.ParseTeamRole(role)
	if err != nil {
		return ErrInvalidTeamRole
	}

	team, err := s.store.Teams.FindByID(ctx, teamID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTeamNotFound
	}
	if err != nil {
		return persistErr(ctx, s.opts.log, "find team", err, zap.Uint("team_id", teamID))
	}
	if team.LeaderID == nil || *team.LeaderID != actor {
		return ErrNotLeader
	}

	err = s.store.Teams.UpsertMember(ctx, &model.TeamMember{
		TeamID:   teamID,
		MemberID: member,
		Role:     r,
		JoinedAt: s.opts.now(),
	})
	if err != nil {
		return persistErr(ctx, s.opts.log, "add team member", err, zap.Uint("team_id", teamID), zap.Int64("member", member))
	}

	err = s.notifier.Notify(ctx, &notifier.Notification{
		Recipient: member,
		Text:      fmt.Sprintf("👥 You were added to team %q as %s.", team.Name, r),
		Kind:      notifier.KindTeamJoined,
	})
	if err != nil {
		logger.Ctx(ctx, s.opts.log).Warn("team notification failed", zap.Int64("member", member), zap.Error(err))
	}
	return nil
}

// Members lists the leader first, then deputies, then members.
func (s *TeamService) Members(ctx context.Context, teamID uint) ([]*model.TeamMember, error) {
	if _, err := s.store.Teams.FindByID(ctx, teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, persistErr(ctx, s.opts.log, "find team", err, zap.Uint("team_id", teamID))
	}
	members, err := s.store.Teams.Members(ctx, teamID)
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "list team members", err, zap.Uint("team_id", teamID))
	}
	return members, nil
}

func (s *TeamService) TeamsOf(ctx context.Context, member int64) ([]*model.Team, error) {
	teams, err := s.store.Teams.TeamsOf(ctx, member)
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "list member teams", err, zap.Int64("member", member))
	}
	return teams, nil
}
