package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ksmcod/tasky-api/internal/domain"
	"github.com/ksmcod/tasky-api/internal/repository"
)

// CreateTeam inserts the team and the creator's membership in one transaction.
func (r *Repository) CreateTeam(ctx context.Context, team *domain.Team, creator *domain.TeamMember) error {
	if team == nil || creator == nil {
		return fmt.Errorf("team and creator membership required")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const teamInsert = `INSERT INTO teams (id, name, description, join_code, creator_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.Exec(ctx, teamInsert, team.ID, team.Name, team.Description, team.JoinCode, team.CreatorID, team.CreatedAt); err != nil {
		return translateError(err)
	}

	const memberInsert = `INSERT INTO team_members (team_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, memberInsert, creator.TeamID, creator.UserID, string(creator.Role), creator.JoinedAt); err != nil {
		return translateError(err)
	}

	return tx.Commit(ctx)
}

// GetTeamByJoinCode returns the team owning the join code.
func (r *Repository) GetTeamByJoinCode(ctx context.Context, joinCode string) (*domain.Team, error) {
	const query = `SELECT id, name, description, join_code, creator_id, created_at FROM teams WHERE join_code = $1`
	var team domain.Team
	err := r.pool.QueryRow(ctx, query, joinCode).Scan(&team.ID, &team.Name, &team.Description, &team.JoinCode, &team.CreatorID, &team.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &team, nil
}

// DeleteTeam removes memberships and the team in one transaction.
func (r *Repository) DeleteTeam(ctx context.Context, teamID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1`, teamID); err != nil {
		return translateError(err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, teamID)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit(ctx)
}

// ListTeamsByUser returns the user's memberships with a team summary.
func (r *Repository) ListTeamsByUser(ctx context.Context, userID string) ([]domain.UserTeam, error) {
	const query = `SELECT t.name, t.description, t.join_code, t.created_at, tm.joined_at, tm.role
		FROM team_members tm
		INNER JOIN teams t ON t.id = tm.team_id
		WHERE tm.user_id = $1`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	teams := make([]domain.UserTeam, 0)
	for rows.Next() {
		var (
			team domain.UserTeam
			role string
		)
		if err := rows.Scan(&team.Name, &team.Description, &team.JoinCode, &team.CreatedAt, &team.JoinedAt, &role); err != nil {
			return nil, err
		}
		team.Role = domain.TeamRole(role)
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// CreateMember adds a membership row.
func (r *Repository) CreateMember(ctx context.Context, member *domain.TeamMember) error {
	const query = `INSERT INTO team_members (team_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, member.TeamID, member.UserID, string(member.Role), member.JoinedAt)
	return translateError(err)
}

// GetMember fetches a single membership.
func (r *Repository) GetMember(ctx context.Context, teamID, userID string) (*domain.TeamMember, error) {
	const query = `SELECT team_id, user_id, role, joined_at FROM team_members WHERE team_id = $1 AND user_id = $2`
	var (
		member domain.TeamMember
		role   string
	)
	if err := r.pool.QueryRow(ctx, query, teamID, userID).Scan(&member.TeamID, &member.UserID, &role, &member.JoinedAt); err != nil {
		return nil, translateError(err)
	}
	member.Role = domain.TeamRole(role)
	return &member, nil
}

// DeleteMember removes a membership row.
func (r *Repository) DeleteMember(ctx context.Context, teamID, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListMembers returns every membership of the team with the member profile.
func (r *Repository) ListMembers(ctx context.Context, teamID string) ([]domain.MemberProfile, error) {
	const query = `SELECT u.name, u.email, u.image, tm.role, tm.joined_at
		FROM team_members tm
		INNER JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = $1
		ORDER BY tm.joined_at`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	members := make([]domain.MemberProfile, 0)
	for rows.Next() {
		var (
			member domain.MemberProfile
			role   string
		)
		if err := rows.Scan(&member.Name, &member.Email, &member.Image, &role, &member.JoinedAt); err != nil {
			return nil, err
		}
		member.Role = domain.TeamRole(role)
		members = append(members, member)
	}
	return members, rows.Err()
}
