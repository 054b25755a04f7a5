package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ksmcod/tasky-api/internal/domain"
	"github.com/ksmcod/tasky-api/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository = (*Repository)(nil)
	_ repository.TeamRepository = (*Repository)(nil)
)

const userColumns = `id, name, email, password_hash, image, provider, provider_id, created_at`

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		nilIfNoBytes(user.PasswordHash),
		user.Image,
		nilIfEmpty(user.Provider),
		nilIfEmpty(user.ProviderID),
		user.CreatedAt,
	)
	return translateError(err)
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByProvider retrieves the user linked to an external identity.
func (r *Repository) GetUserByProvider(ctx context.Context, provider, providerID string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE provider = $1 AND provider_id = $2`
	return scanUser(r.pool.QueryRow(ctx, query, provider, providerID))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u          domain.User
		provider   *string
		providerID *string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &provider, &providerID, &u.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	if provider != nil {
		u.Provider = *provider
	}
	if providerID != nil {
		u.ProviderID = *providerID
	}
	return &u, nil
}

// translateError maps driver errors onto repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return repository.ErrConflict
		case "23503", "22P02":
			// foreign key to a missing row, or an id that is not a uuid
			return repository.ErrNotFound
		}
	}
	return err
}

func nilIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nilIfNoBytes(value []byte) any {
	if len(value) == 0 {
		return nil
	}
	return value
}
