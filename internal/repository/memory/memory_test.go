package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksmcod/tasky-api/internal/domain"
	"github.com/ksmcod/tasky-api/internal/repository"
)

func seedUser(t *testing.T, s *Store, id, email string) {
	t.Helper()
	require.NoError(t, s.CreateUser(context.Background(), &domain.User{ID: id, Email: email, Name: id}))
}

func TestStoreUserUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u1", "a@example.com")

	err := s.CreateUser(ctx, &domain.User{ID: "u2", Email: "a@example.com"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	u, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestStoreProviderIdentityUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, &domain.User{ID: "g1", Email: "a@example.com", Provider: "github", ProviderID: "42"}))

	err := s.CreateUser(ctx, &domain.User{ID: "g2", Email: "b@example.com", Provider: "github", ProviderID: "42"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	// Local accounts carry no provider and never collide on it.
	seedUser(t, s, "l1", "c@example.com")
	seedUser(t, s, "l2", "d@example.com")

	u, err := s.GetUserByProvider(ctx, "github", "42")
	require.NoError(t, err)
	assert.Equal(t, "g1", u.ID)

	_, err = s.GetUserByProvider(ctx, "github", "43")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.GetUserByProvider(ctx, "", "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStoreTeamLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u1", "a@example.com")
	seedUser(t, s, "u2", "b@example.com")

	now := time.Now()
	team := &domain.Team{ID: "t1", Name: "Alpha", JoinCode: "abcd1234", CreatorID: "u1", CreatedAt: now}
	creator := &domain.TeamMember{TeamID: "t1", UserID: "u1", Role: domain.RoleCreator, JoinedAt: now}
	require.NoError(t, s.CreateTeam(ctx, team, creator))

	dup := &domain.Team{ID: "t2", Name: "Beta", JoinCode: "abcd1234", CreatorID: "u2", CreatedAt: now}
	err := s.CreateTeam(ctx, dup, &domain.TeamMember{TeamID: "t2", UserID: "u2", Role: domain.RoleCreator})
	assert.ErrorIs(t, err, repository.ErrConflict, "join codes are unique")

	member := &domain.TeamMember{TeamID: "t1", UserID: "u2", Role: domain.RoleMember, JoinedAt: now.Add(time.Second)}
	require.NoError(t, s.CreateMember(ctx, member))
	assert.ErrorIs(t, s.CreateMember(ctx, member), repository.ErrConflict)

	second := &domain.TeamMember{TeamID: "t1", UserID: "u2", Role: domain.RoleCreator}
	assert.ErrorIs(t, s.CreateMember(ctx, second), repository.ErrConflict)

	members, err := s.ListMembers(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, domain.RoleCreator, members[0].Role)

	require.NoError(t, s.DeleteTeam(ctx, "t1"))
	assert.Equal(t, 0, s.CountMembers("t1"))
	_, err = s.GetTeamByJoinCode(ctx, "abcd1234")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTeam(ctx, "t1"), repository.ErrNotFound)
}

func TestStoreFailureInjection(t *testing.T) {
	s := New()
	boom := errors.New("connection reset")
	s.SetFailure(boom)
	_, err := s.ListTeamsByUser(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
	s.SetFailure(nil)
	teams, err := s.ListTeamsByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, teams)
	assert.Empty(t, teams)
}
