package team

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ksmcod/tasky-api/internal/domain"
	"github.com/ksmcod/tasky-api/internal/repository"
	"github.com/ksmcod/tasky-api/internal/validation"
	"github.com/ksmcod/tasky-api/pkg/apperr"
)

const (
	joinCodeLength   = 8
	joinCodeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	msgTeamNotFound = "Team not found"
	msgNoUser       = "User non-existent"
	msgNotMember    = "You are not a member of this team"
)

// Service handles team registry and membership workflows.
type Service struct {
	teams     repository.TeamRepository
	users     repository.UserRepository
	logger    *slog.Logger
	validator *validation.Validator
	newCode   func() (string, error)
}

// Option customises a Service.
type Option func(*Service)

// WithJoinCodeGenerator replaces the random join code source.
func WithJoinCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		s.newCode = gen
	}
}

// New constructs a Service.
func New(teams repository.TeamRepository, users repository.UserRepository, logger *slog.Logger, opts ...Option) Service {
	s := Service{
		teams:     teams,
		users:     users,
		logger:    logger,
		validator: validation.New(),
		newCode:   GenerateJoinCode,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// CreateInput is the payload for a new team.
type CreateInput struct {
	Name        string `json:"name" validate:"required,max=100" label:"Team name"`
	Description string `json:"description" validate:"max=500" label:"Description"`
}

// Create registers a team and makes creatorID its CREATOR.
func (s Service) Create(ctx context.Context, creatorID string, in CreateInput) (*domain.Team, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	code, err := s.newCode()
	if err != nil {
		return nil, apperr.Internal("generate join code", err)
	}
	now := time.Now().UTC()
	team := &domain.Team{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		JoinCode:    code,
		CreatorID:   creatorID,
		CreatedAt:   now,
	}
	creator := &domain.TeamMember{
		TeamID:   team.ID,
		UserID:   creatorID,
		Role:     domain.RoleCreator,
		JoinedAt: now,
	}
	if err := s.teams.CreateTeam(ctx, team, creator); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, apperr.Wrap(apperr.KindConflict, "Could not allocate a team code, please retry", err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.Wrap(apperr.KindUnauthorized, msgNoUser, err)
		}
		return nil, apperr.Internal("create team", err)
	}
	s.logger.Info("team created", "team_id", team.ID, "creator_id", creatorID)
	return team, nil
}

// ListUserTeams returns every team userID belongs to with their role.
func (s Service) ListUserTeams(ctx context.Context, userID string) ([]domain.UserTeam, error) {
	teams, err := s.teams.ListTeamsByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("list user teams", err)
	}
	if teams == nil {
		teams = []domain.UserTeam{}
	}
	return teams, nil
}

// FindByJoinCode resolves a team from its join code.
func (s Service) FindByJoinCode(ctx context.Context, code string) (*domain.Team, error) {
	team, err := s.teams.GetTeamByJoinCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, msgTeamNotFound, err)
		}
		return nil, apperr.Internal("lookup team", err)
	}
	return team, nil
}

// Delete removes a team and all of its memberships. Only the CREATOR may
// delete.
func (s Service) Delete(ctx context.Context, requesterID, code string) error {
	team, err := s.FindByJoinCode(ctx, code)
	if err != nil {
		return err
	}
	role, err := s.roleOf(ctx, team.ID, requesterID)
	if err != nil {
		return err
	}
	if role != domain.RoleCreator {
		return apperr.Forbidden("Only the team creator can delete this team")
	}
	if err := s.teams.DeleteTeam(ctx, team.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Wrap(apperr.KindNotFound, msgTeamNotFound, err)
		}
		return apperr.Internal("delete team", err)
	}
	s.logger.Info("team deleted", "team_id", team.ID, "requester_id", requesterID)
	return nil
}

// roleOf returns the requester's role, or "" when they have no membership.
func (s Service) roleOf(ctx context.Context, teamID, userID string) (domain.TeamRole, error) {
	member, err := s.teams.GetMember(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", apperr.Internal("lookup membership", err)
	}
	return member.Role, nil
}

// GenerateJoinCode returns a random lowercase base-36 code.
func GenerateJoinCode() (string, error) {
	base := big.NewInt(int64(len(joinCodeAlphabet)))
	var b strings.Builder
	b.Grow(joinCodeLength)
	for i := 0; i < joinCodeLength; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		b.WriteByte(joinCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
