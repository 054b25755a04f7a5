package repository

import (
	"context"

	"github.com/ksmcod/tasky-api/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	// CreateUser returns ErrConflict when the email or the provider
	// identity is taken.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByProvider(ctx context.Context, provider, providerID string) (*domain.User, error)
}

// TeamRepository manages teams and memberships.
type TeamRepository interface {
	// CreateTeam stores the team and its creator membership atomically.
	CreateTeam(ctx context.Context, team *domain.Team, creator *domain.TeamMember) error
	GetTeamByJoinCode(ctx context.Context, joinCode string) (*domain.Team, error)
	// DeleteTeam removes the team and all of its memberships atomically.
	DeleteTeam(ctx context.Context, teamID string) error
	ListTeamsByUser(ctx context.Context, userID string) ([]domain.UserTeam, error)

	// CreateMember returns ErrConflict when the user already belongs to the team.
	CreateMember(ctx context.Context, member *domain.TeamMember) error
	GetMember(ctx context.Context, teamID, userID string) (*domain.TeamMember, error)
	DeleteMember(ctx context.Context, teamID, userID string) error
	ListMembers(ctx context.Context, teamID string) ([]domain.MemberProfile, error)
}
