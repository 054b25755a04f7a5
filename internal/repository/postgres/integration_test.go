package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksmcod/tasky-api/internal/app/migrate"
	"github.com/ksmcod/tasky-api/internal/domain"
	"github.com/ksmcod/tasky-api/internal/repository"
	"github.com/ksmcod/tasky-api/internal/repository/postgres"
)

// newRepository connects to TASKY_TEST_DATABASE_URL and applies the schema.
// Rows are keyed by fresh UUIDs so runs against a shared database do not
// collide.
func newRepository(t *testing.T) *postgres.Repository {
	t.Helper()
	dsn := os.Getenv("TASKY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TASKY_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	runner, err := migrate.New(pool, dsn, "../../../db/migrations", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, runner.Ensure(ctx))
	return postgres.New(pool)
}

func seedUser(t *testing.T, repo *postgres.Repository) *domain.User {
	t.Helper()
	id := uuid.NewString()
	user := &domain.User{
		ID:           id,
		Name:         "user " + id[:8],
		Email:        id + "@example.com",
		PasswordHash: []byte("$2a$10$placeholder"),
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func newTeam(creatorID string) (*domain.Team, *domain.TeamMember) {
	now := time.Now().UTC()
	team := &domain.Team{
		ID:        uuid.NewString(),
		Name:      "Alpha",
		JoinCode:  strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		CreatorID: creatorID,
		CreatedAt: now,
	}
	creator := &domain.TeamMember{TeamID: team.ID, UserID: creatorID, Role: domain.RoleCreator, JoinedAt: now}
	return team, creator
}

func TestUserConstraints(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	local := seedUser(t, repo)

	dup := *local
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, repo.CreateUser(ctx, &dup), repository.ErrConflict)

	providerID := uuid.NewString()
	federated := &domain.User{
		ID:         uuid.NewString(),
		Name:       "Grace",
		Email:      uuid.NewString() + "@example.com",
		Provider:   "github",
		ProviderID: providerID,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.CreateUser(ctx, federated))

	sameIdentity := *federated
	sameIdentity.ID = uuid.NewString()
	sameIdentity.Email = uuid.NewString() + "@example.com"
	assert.ErrorIs(t, repo.CreateUser(ctx, &sameIdentity), repository.ErrConflict)

	found, err := repo.GetUserByProvider(ctx, "github", providerID)
	require.NoError(t, err)
	assert.Equal(t, federated.ID, found.ID)
	assert.False(t, found.HasPassword())

	_, err = repo.GetUserByProvider(ctx, "github", uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetUserByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateTeamIsAtomic(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	owner := seedUser(t, repo)

	team, creator := newTeam(owner.ID)
	require.NoError(t, repo.CreateTeam(ctx, team, creator))

	got, err := repo.GetTeamByJoinCode(ctx, team.JoinCode)
	require.NoError(t, err)
	assert.Equal(t, team.ID, got.ID)
	assert.Equal(t, owner.ID, got.CreatorID)

	member, err := repo.GetMember(ctx, team.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCreator, member.Role)

	clash, clashCreator := newTeam(owner.ID)
	clash.JoinCode = team.JoinCode
	assert.ErrorIs(t, repo.CreateTeam(ctx, clash, clashCreator), repository.ErrConflict)

	// The creator row fails its foreign key, so the team row must roll back.
	orphan, orphanCreator := newTeam(owner.ID)
	orphanCreator.UserID = uuid.NewString()
	assert.ErrorIs(t, repo.CreateTeam(ctx, orphan, orphanCreator), repository.ErrNotFound)
	_, err = repo.GetTeamByJoinCode(ctx, orphan.JoinCode)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMembershipConstraints(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	owner := seedUser(t, repo)
	joiner := seedUser(t, repo)

	team, creator := newTeam(owner.ID)
	require.NoError(t, repo.CreateTeam(ctx, team, creator))

	membership := &domain.TeamMember{TeamID: team.ID, UserID: joiner.ID, Role: domain.RoleMember, JoinedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateMember(ctx, membership))
	assert.ErrorIs(t, repo.CreateMember(ctx, membership), repository.ErrConflict)

	secondCreator := seedUser(t, repo)
	err := repo.CreateMember(ctx, &domain.TeamMember{TeamID: team.ID, UserID: secondCreator.ID, Role: domain.RoleCreator, JoinedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, repository.ErrConflict)

	err = repo.CreateMember(ctx, &domain.TeamMember{TeamID: team.ID, UserID: uuid.NewString(), Role: domain.RoleMember, JoinedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	members, err := repo.ListMembers(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, owner.Email, members[0].Email)
	assert.Equal(t, domain.RoleCreator, members[0].Role)

	teams, err := repo.ListTeamsByUser(ctx, joiner.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, team.JoinCode, teams[0].JoinCode)
	assert.Equal(t, domain.RoleMember, teams[0].Role)

	require.NoError(t, repo.DeleteMember(ctx, team.ID, joiner.ID))
	assert.ErrorIs(t, repo.DeleteMember(ctx, team.ID, joiner.ID), repository.ErrNotFound)
}

func TestDeleteTeamCascadesMemberships(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	owner := seedUser(t, repo)
	joiner := seedUser(t, repo)

	team, creator := newTeam(owner.ID)
	require.NoError(t, repo.CreateTeam(ctx, team, creator))
	require.NoError(t, repo.CreateMember(ctx, &domain.TeamMember{TeamID: team.ID, UserID: joiner.ID, Role: domain.RoleMember, JoinedAt: time.Now().UTC()}))

	require.NoError(t, repo.DeleteTeam(ctx, team.ID))
	assert.ErrorIs(t, repo.DeleteTeam(ctx, team.ID), repository.ErrNotFound)

	_, err := repo.GetTeamByJoinCode(ctx, team.JoinCode)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	members, err := repo.ListMembers(ctx, team.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
	teams, err := repo.ListTeamsByUser(ctx, joiner.ID)
	require.NoError(t, err)
	assert.Empty(t, teams)
}
