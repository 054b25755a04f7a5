package team

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ksmcod/tasky-api/internal/domain"
	"github.com/ksmcod/tasky-api/internal/repository"
	"github.com/ksmcod/tasky-api/pkg/apperr"
)

// Join adds userID to the team with the given code as a MEMBER.
func (s Service) Join(ctx context.Context, userID, code string) (*domain.Team, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Validation("Please send a team code")
	}
	team, err := s.FindByJoinCode(ctx, code)
	if err != nil {
		return nil, err
	}
	member := &domain.TeamMember{
		TeamID:   team.ID,
		UserID:   userID,
		Role:     domain.RoleMember,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.teams.CreateMember(ctx, member); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, apperr.Wrap(apperr.KindConflict, "You are already a member of this team", err)
		case errors.Is(err, repository.ErrNotFound):
			// The team was just resolved, so the caller's account is gone.
			return nil, apperr.Wrap(apperr.KindUnauthorized, msgNoUser, err)
		}
		return nil, apperr.Internal("create membership", err)
	}
	s.logger.Info("member joined", "team_id", team.ID, "user_id", userID)
	return team, nil
}

// Leave removes userID's own membership. The CREATOR cannot leave.
func (s Service) Leave(ctx context.Context, userID, code string) error {
	team, err := s.FindByJoinCode(ctx, code)
	if err != nil {
		return err
	}
	role, err := s.roleOf(ctx, team.ID, userID)
	if err != nil {
		return err
	}
	switch role {
	case "":
		return apperr.Forbidden(msgNotMember)
	case domain.RoleCreator:
		return apperr.Validation("You cannot leave your own team")
	}
	if err := s.deleteMember(ctx, team.ID, userID); err != nil {
		return err
	}
	s.logger.Info("member left", "team_id", team.ID, "user_id", userID)
	return nil
}

// RemoveMember lets the CREATOR remove another member by email.
func (s Service) RemoveMember(ctx context.Context, requesterID, code, targetEmail string) error {
	team, err := s.FindByJoinCode(ctx, code)
	if err != nil {
		return err
	}
	role, err := s.roleOf(ctx, team.ID, requesterID)
	if err != nil {
		return err
	}
	if role != domain.RoleCreator {
		return apperr.Forbidden("Only the team creator can remove members")
	}
	target, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(targetEmail))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Wrap(apperr.KindNotFound, "User not found", err)
		}
		return apperr.Internal("lookup user by email", err)
	}
	targetRole, err := s.roleOf(ctx, team.ID, target.ID)
	if err != nil {
		return err
	}
	switch targetRole {
	case "":
		return apperr.NotFound("User is not a member of this team")
	case domain.RoleCreator:
		return apperr.Validation("You cannot remove the team creator")
	}
	if err := s.deleteMember(ctx, team.ID, target.ID); err != nil {
		return err
	}
	s.logger.Info("member removed", "team_id", team.ID, "user_id", target.ID, "requester_id", requesterID)
	return nil
}

// ListMembers returns the team's members. The requester must belong to the
// team.
func (s Service) ListMembers(ctx context.Context, requesterID, code string) ([]domain.MemberProfile, error) {
	team, err := s.FindByJoinCode(ctx, code)
	if err != nil {
		return nil, err
	}
	role, err := s.roleOf(ctx, team.ID, requesterID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, apperr.Forbidden(msgNotMember)
	}
	members, err := s.teams.ListMembers(ctx, team.ID)
	if err != nil {
		return nil, apperr.Internal("list members", err)
	}
	if members == nil {
		members = []domain.MemberProfile{}
	}
	return members, nil
}

func (s Service) deleteMember(ctx context.Context, teamID, userID string) error {
	if err := s.teams.DeleteMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Wrap(apperr.KindNotFound, "User is not a member of this team", err)
		}
		return apperr.Internal("delete membership", err)
	}
	return nil
}
